package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/placementops/ticketing/internal/domain"
	apperrors "github.com/placementops/ticketing/pkg/util/errorutil"
)

// genericTransitions lists the statuses update_status may move a ticket to.
var genericTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusEscalated},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved, domain.TicketStatusEscalated, domain.TicketStatusClosed},
	domain.TicketStatusEscalated:  {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed},
}

var genericRules = RuleSet{
	ActionUpdateStatus: {
		From: []domain.TicketStatus{
			domain.TicketStatusOpen,
			domain.TicketStatusInProgress,
			domain.TicketStatusEscalated,
			domain.TicketStatusResolved,
		},
	},
	ActionComment: commentRule,
}

var jobFeedEmptyRules = RuleSet{
	ActionUpdateStatus: genericRules[ActionUpdateStatus],
	ActionComment:      commentRule,
	ActionSubmitRequiredFile: {
		From:     []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusEscalated},
		Actors:   []domain.Role{domain.RoleScrapingTeam},
		Evidence: EvidenceFile,
	},
}

type genericWorkflow struct{}

func (genericWorkflow) Name() string { return "generic" }

func (genericWorkflow) Rules(ticketType domain.TicketType) RuleSet {
	if ticketType == domain.TicketTypeJobFeedEmpty {
		return jobFeedEmptyRules
	}
	return genericRules
}

func (genericWorkflow) IsPrimaryOwner(t *domain.Ticket, role domain.Role) bool {
	return t.Type == domain.TicketTypeJobFeedEmpty && role == domain.RoleScrapingTeam
}

func (genericWorkflow) Validate(tc *TransitionContext) error {
	if tc.Action != ActionUpdateStatus {
		return nil
	}
	target := tc.Input.TargetStatus
	if !target.Valid() {
		return apperrors.NewFieldError("target_status", fmt.Sprintf("unknown status %q", target))
	}
	if !canMoveTo(tc.Status(), target) {
		return apperrors.NewStateConflict(
			fmt.Sprintf("cannot move ticket from %s to %s", tc.Status(), target),
			map[string]any{"from": tc.Status(), "to": target},
		)
	}
	if target == domain.TicketStatusEscalated && strings.TrimSpace(tc.Input.EscalationReason) == "" {
		return apperrors.NewFieldError("escalation_reason", "escalation reason is required when escalating")
	}
	return nil
}

func (genericWorkflow) Apply(ctx context.Context, tc *TransitionContext) error {
	switch tc.Action {
	case ActionUpdateStatus:
		target := tc.Input.TargetStatus
		if !canMoveTo(tc.Status(), target) {
			return apperrors.NewStateConflict(fmt.Sprintf("cannot move ticket from %s to %s", tc.Status(), target), nil)
		}
		if err := tc.RecordEvidence(ctx, statusUpdateComment(tc.Input)); err != nil {
			return err
		}
		if target == domain.TicketStatusEscalated {
			tc.Escalate()
		}
		tc.MoveTo(target)
		return nil
	case ActionSubmitRequiredFile:
		if err := tc.RecordEvidence(ctx, tc.Input.Comment); err != nil {
			return err
		}
		tc.MoveTo(domain.TicketStatusResolved)
		return nil
	default:
		return tc.RecordEvidence(ctx, tc.Input.Comment)
	}
}

func canMoveTo(from, to domain.TicketStatus) bool {
	for _, s := range genericTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func statusUpdateComment(in TransitionInput) string {
	var parts []string
	if c := strings.TrimSpace(in.Comment); c != "" {
		parts = append(parts, c)
	}
	if r := strings.TrimSpace(in.Resolution); r != "" {
		parts = append(parts, "Resolution: "+r)
	}
	if in.TargetStatus == domain.TicketStatusEscalated {
		parts = append(parts, "Escalation reason: "+strings.TrimSpace(in.EscalationReason))
	}
	return strings.Join(parts, "\n\n")
}
