package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/events"
	"github.com/deskflow/helpdesk/internal/policy"
	apperrors "github.com/deskflow/helpdesk/pkg/util/errorutil"
)

const commentPreviewLength = 120

// CommentCreateInput is the payload of a new comment.
type CommentCreateInput struct {
	Message    string
	IsInternal bool
}

// AddComment posts to the ticket thread. The internal flag is kept only for
// agents, and the first agent comment stamps firstResponseAt.
func (s *TicketService) AddComment(ctx context.Context, caller policy.Caller, ticketID string, input CommentCreateInput) (*domain.Comment, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, apperrors.NewValidationError("comment message is required", map[string]any{"message": "required"})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupErr(err, "ticket", ticketID)
	}
	if err := policy.Authorize(caller, policy.ActionCommentCreate, policy.TicketResource(ticket)); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		UserID:     caller.ID,
		Message:    message,
		IsInternal: input.IsInternal && policy.Allowed(caller, policy.ActionCommentInternal, policy.Resource{}),
		CreatedAt:  s.now(),
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.comments.Create(ctx, comment); err != nil {
			return err
		}
		if now := s.now(); caller.IsAgent() && policy.ApplyAgentResponse(ticket, now) {
			if _, err := s.tickets.StampFirstResponse(ctx, ticket.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	created, err := s.comments.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventCommentAdded, ticket.ID, caller, events.CommentAddedPayload{
		CommentID:   created.ID,
		IsInternal:  created.IsInternal,
		BodyPreview: preview(created.Message),
	})
	return created, nil
}

// DeleteComment removes a comment after checking it belongs to the ticket.
func (s *TicketService) DeleteComment(ctx context.Context, caller policy.Caller, ticketID, commentID string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if err := policy.Authorize(caller, policy.ActionCommentDelete, policy.Resource{}); err != nil {
		return err
	}
	commentID = strings.TrimSpace(commentID)
	if commentID == "" {
		return apperrors.NewValidationError("commentId is required", map[string]any{"commentId": "required"})
	}

	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return lookupErr(err, "comment", commentID)
	}
	if comment.TicketID != ticketID {
		return apperrors.NewValidationCode("COMMENT_TICKET_MISMATCH", "comment does not belong to this ticket",
			map[string]any{"commentId": commentID, "ticketId": ticketID})
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("comment", map[string]any{"id": commentID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func preview(message string) string {
	if utf8.RuneCountInString(message) <= commentPreviewLength {
		return message
	}
	return string([]rune(message)[:commentPreviewLength]) + "..."
}
