package service

import (
	"context"
	"strings"

	"github.com/placementops/ticketing/internal/domain"
	apperrors "github.com/placementops/ticketing/pkg/util/errorutil"
)

var volumeShortfallRules = RuleSet{
	ActionForward: {
		From:          []domain.TicketStatus{domain.TicketStatusOpen},
		Actors:        []domain.Role{domain.RoleCATeamLead, domain.RoleAccountManager},
		AllowAssignee: true,
	},
	ActionClose: {
		From:     []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusReplied},
		Actors:   []domain.Role{domain.RoleCATeamLead},
		Evidence: EvidenceCommentOrFile,
	},
	ActionReply: {
		From:     []domain.TicketStatus{domain.TicketStatusForwarded, domain.TicketStatusReplied},
		Actors:   []domain.Role{domain.RoleCareerAssociate, domain.RoleScrapingTeam},
		Evidence: EvidenceCommentOrFile,
	},
	ActionResolve: {
		From:     []domain.TicketStatus{domain.TicketStatusClosed},
		Actors:   []domain.Role{domain.RoleAccountManager, domain.RoleCOO, domain.RoleCRO, domain.RoleCEO},
		Evidence: EvidenceComment,
	},
	ActionComment: commentRule,
}

// respondersForReply must all have commented before a forwarded ticket returns to its lead.
var respondersForReply = []domain.Role{domain.RoleCareerAssociate, domain.RoleScrapingTeam}

type volumeShortfallWorkflow struct{}

func (volumeShortfallWorkflow) Name() string { return "volume_shortfall" }

func (volumeShortfallWorkflow) Rules(domain.TicketType) RuleSet { return volumeShortfallRules }

func (volumeShortfallWorkflow) IsPrimaryOwner(_ *domain.Ticket, role domain.Role) bool {
	return role == domain.RoleCATeamLead || role == domain.RoleAccountManager
}

func (volumeShortfallWorkflow) Validate(tc *TransitionContext) error {
	if tc.Action != ActionClose || !tc.Input.Escalate {
		return nil
	}
	if strings.TrimSpace(tc.Input.EscalationReason) == "" {
		return apperrors.NewFieldError("escalation_reason", "escalation reason is required when escalating")
	}
	if tc.Status() != domain.TicketStatusReplied {
		return apperrors.NewFieldError("escalate", "only replied tickets can be escalated on close")
	}
	return nil
}

func (w volumeShortfallWorkflow) Apply(ctx context.Context, tc *TransitionContext) error {
	switch tc.Action {
	case ActionForward:
		return w.forward(ctx, tc)
	case ActionClose:
		return w.close(ctx, tc)
	case ActionResolve:
		if err := tc.RecordEvidence(ctx, tc.Input.Comment); err != nil {
			return err
		}
		tc.MoveTo(domain.TicketStatusResolved)
		return nil
	default:
		if err := tc.RecordEvidence(ctx, tc.Input.Comment); err != nil {
			return err
		}
		return w.checkReplies(ctx, tc)
	}
}

func (volumeShortfallWorkflow) forward(ctx context.Context, tc *TransitionContext) error {
	client, err := tc.Client(ctx)
	if err != nil {
		return err
	}
	if client.CareerAssociateID == nil && client.ScraperID == nil {
		return noBindingsError("career associate or scraper")
	}
	if err := tc.RecordEvidence(ctx, tc.Input.Comment); err != nil {
		return err
	}
	added, err := tc.Assign(ctx, deref(client.CareerAssociateID), deref(client.ScraperID))
	if err != nil {
		return err
	}
	if len(added) == 0 {
		tc.Notice("career associate and scraper were already assigned")
	}
	if err := tc.Repos.VolumeShortfall.MarkForwarded(ctx, tc.Ticket.ID, tc.now()); err != nil {
		return persist("volume_shortfall_tickets", err)
	}
	tc.MoveTo(domain.TicketStatusForwarded)
	return nil
}

func (volumeShortfallWorkflow) close(ctx context.Context, tc *TransitionContext) error {
	var caID string
	if tc.Input.Escalate {
		client, err := tc.Client(ctx)
		if err != nil {
			return err
		}
		if client.CareerAssociateID == nil {
			return noBindingsError("career associate")
		}
		caID = *client.CareerAssociateID
	}
	if err := tc.RecordEvidence(ctx, tc.Input.Comment); err != nil {
		return err
	}
	if tc.Input.Escalate {
		if err := tc.RaiseEscalation(ctx, caID, strings.TrimSpace(tc.Input.EscalationReason)); err != nil {
			return err
		}
	}
	tc.MoveTo(domain.TicketStatusClosed)
	return nil
}

// checkReplies moves a forwarded ticket to replied once the career associate and
// the scraping team have both commented, handing it back to the client's CA team lead.
func (volumeShortfallWorkflow) checkReplies(ctx context.Context, tc *TransitionContext) error {
	if tc.Status() != domain.TicketStatusForwarded {
		return nil
	}
	done, err := tc.AllResponded(ctx, respondersForReply...)
	if err != nil || !done {
		return err
	}
	client, err := tc.Client(ctx)
	if err != nil {
		return err
	}
	if client.CATeamLeadID == nil {
		tc.Notice("client has no CA team lead bound; ticket stays forwarded")
		return nil
	}
	if _, err := tc.Assign(ctx, *client.CATeamLeadID); err != nil {
		return err
	}
	tc.MoveAutomatically(domain.TicketStatusReplied, "career associate and scraping team replied")
	return nil
}
