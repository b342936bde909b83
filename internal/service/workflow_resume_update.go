package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/placementops/ticketing/internal/domain"
)

var resumeUpdateRules = RuleSet{
	ActionForwardResume: {
		From:     []domain.TicketStatus{domain.TicketStatusOpen},
		Actors:   []domain.Role{domain.RoleResumeTeam, domain.RoleResumeTeamLead},
		Evidence: EvidenceCommentOrFile,
	},
	ActionForwardToTeams: {
		From:   []domain.TicketStatus{domain.TicketStatusInProgress},
		Actors: []domain.Role{domain.RoleAccountManager},
	},
	ActionSendBack: {
		From:     []domain.TicketStatus{domain.TicketStatusInProgress},
		Actors:   []domain.Role{domain.RoleAccountManager},
		Evidence: EvidenceComment,
	},
	ActionAcknowledge: {
		From:   []domain.TicketStatus{domain.TicketStatusForwarded},
		Actors: resumeAcknowledgers,
	},
	ActionMarkResolved: {
		From:   []domain.TicketStatus{domain.TicketStatusClosed},
		Actors: []domain.Role{domain.RoleAccountManager},
	},
	ActionComment: commentRule,
}

// resumeAcknowledgers must all confirm before a forwarded resume update closes.
var resumeAcknowledgers = []domain.Role{domain.RoleCATeamLead, domain.RoleCareerAssociate, domain.RoleScrapingTeam}

const resumeUpdatesDoneMessage = "Updates Done – All teams have confirmed the resume update."

type resumeUpdateWorkflow struct{}

func (resumeUpdateWorkflow) Name() string { return "resume_update" }

func (resumeUpdateWorkflow) Rules(domain.TicketType) RuleSet { return resumeUpdateRules }

// IsPrimaryOwner lets the resume team pick up tickets still waiting in open.
func (resumeUpdateWorkflow) IsPrimaryOwner(t *domain.Ticket, role domain.Role) bool {
	return t.Status == domain.TicketStatusOpen &&
		(role == domain.RoleResumeTeam || role == domain.RoleResumeTeamLead)
}

func (resumeUpdateWorkflow) Validate(*TransitionContext) error { return nil }

func (w resumeUpdateWorkflow) Apply(ctx context.Context, tc *TransitionContext) error {
	switch tc.Action {
	case ActionForwardResume:
		return w.forwardResume(ctx, tc)
	case ActionForwardToTeams:
		return w.forwardToTeams(ctx, tc)
	case ActionSendBack:
		return w.sendBack(ctx, tc)
	case ActionAcknowledge:
		content := fmt.Sprintf("%s acknowledged resume update.", roleLabel(tc.Actor.Role))
		if extra := strings.TrimSpace(tc.Input.Comment); extra != "" {
			content += "\n\n" + extra
		}
		if err := tc.RecordEvidence(ctx, content); err != nil {
			return err
		}
		return w.checkAcknowledged(ctx, tc)
	case ActionMarkResolved:
		if err := tc.RecordEvidence(ctx, tc.Input.Comment); err != nil {
			return err
		}
		tc.MoveTo(domain.TicketStatusResolved)
		return nil
	default:
		if err := tc.RecordEvidence(ctx, tc.Input.Comment); err != nil {
			return err
		}
		return w.checkAcknowledged(ctx, tc)
	}
}

// forwardResume hands the updated resume back to whoever raised the ticket.
func (resumeUpdateWorkflow) forwardResume(ctx context.Context, tc *TransitionContext) error {
	content := tc.Input.Comment
	if up := tc.upload; up != nil && up.err == nil {
		content = strings.TrimSpace(content + " [Attached file: " + up.name + "]")
	}
	if err := tc.RecordEvidence(ctx, content); err != nil {
		return err
	}
	if _, err := tc.Assign(ctx, tc.Ticket.CreatedBy); err != nil {
		return err
	}
	tc.MoveTo(domain.TicketStatusInProgress)
	return nil
}

func (resumeUpdateWorkflow) forwardToTeams(ctx context.Context, tc *TransitionContext) error {
	client, err := tc.Client(ctx)
	if err != nil {
		return err
	}
	if client.CareerAssociateID == nil && client.CATeamLeadID == nil && client.ScraperID == nil {
		return noBindingsError("career associate, CA team lead or scraper")
	}
	if err := tc.RecordEvidence(ctx, tc.Input.Comment); err != nil {
		return err
	}
	added, err := tc.Assign(ctx, deref(client.CareerAssociateID), deref(client.CATeamLeadID), deref(client.ScraperID))
	if err != nil {
		return err
	}
	if len(added) == 0 {
		tc.Notice("client teams were already assigned")
	}
	tc.MoveTo(domain.TicketStatusForwarded)
	return nil
}

// sendBack returns the ticket to the resume team: the first active lead, or every
// active resume team member when no lead is available.
func (resumeUpdateWorkflow) sendBack(ctx context.Context, tc *TransitionContext) error {
	if err := tc.RecordEvidence(ctx, tc.Input.Comment); err != nil {
		return err
	}
	leads, err := tc.Repos.Users.ListActiveByRole(ctx, domain.RoleResumeTeamLead)
	if err != nil {
		return persist("read users", err)
	}
	var candidates []string
	if len(leads) > 0 {
		candidates = []string{leads[0].ID}
	} else {
		members, err := tc.Repos.Users.ListActiveByRole(ctx, domain.RoleResumeTeam)
		if err != nil {
			return persist("read users", err)
		}
		for _, m := range members {
			candidates = append(candidates, m.ID)
		}
	}
	if len(candidates) == 0 {
		tc.Notice("no active resume team member to send the ticket back to")
	} else if _, err := tc.Assign(ctx, candidates...); err != nil {
		return err
	}
	tc.MoveTo(domain.TicketStatusOpen)
	return nil
}

func (resumeUpdateWorkflow) checkAcknowledged(ctx context.Context, tc *TransitionContext) error {
	if tc.Status() != domain.TicketStatusForwarded {
		return nil
	}
	done, err := tc.AllResponded(ctx, resumeAcknowledgers...)
	if err != nil || !done {
		return err
	}
	tc.MoveAutomatically(domain.TicketStatusClosed, "all teams acknowledged the resume update")
	return tc.AppendCommentAs(ctx, tc.Ticket.CreatedBy, resumeUpdatesDoneMessage, false, domain.TicketStatusClosed)
}

func roleLabel(role domain.Role) string {
	return strings.ReplaceAll(string(role), "_", " ")
}
