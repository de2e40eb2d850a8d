package service

import (
	"context"
	"math"

	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/policy"
	"github.com/deskflow/helpdesk/internal/repository"
	apperrors "github.com/deskflow/helpdesk/pkg/util/errorutil"
)

// StatsService builds the dashboard aggregate.
type StatsService struct {
	tickets repository.TicketRepository
}

// NewStatsService constructs the service.
func NewStatsService(tickets repository.TicketRepository) *StatsService {
	return &StatsService{tickets: tickets}
}

// ForCaller returns counts scoped to the caller's own tickets for
// non-agents. The response-time metrics are only filled for agents.
func (s *StatsService) ForCaller(ctx context.Context, caller policy.Caller) (*domain.TicketStats, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var scope *string
	if !caller.IsAgent() {
		scope = &caller.ID
	}
	agg, err := s.tickets.Aggregate(ctx, scope)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return BuildStats(agg, policy.Allowed(caller, policy.ActionStatsMetrics, policy.Resource{})), nil
}

// Global returns the unscoped aggregate including metrics.
func (s *StatsService) Global(ctx context.Context) (*domain.TicketStats, error) {
	agg, err := s.tickets.Aggregate(ctx, nil)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return BuildStats(agg, true), nil
}

// BuildStats converts a raw aggregate. Average response time is reported in
// whole minutes and resolution time in whole hours.
func BuildStats(agg *domain.TicketAggregate, withMetrics bool) *domain.TicketStats {
	stats := &domain.TicketStats{
		Open:       agg.ByStatus[domain.TicketStatusOpen],
		InProgress: agg.ByStatus[domain.TicketStatusInProgress],
		Resolved:   agg.ByStatus[domain.TicketStatusResolved],
		Closed:     agg.ByStatus[domain.TicketStatusClosed],
		Urgent:     agg.ByPriority[domain.TicketPriorityUrgent],
		High:       agg.ByPriority[domain.TicketPriorityHigh],
		Medium:     agg.ByPriority[domain.TicketPriorityMedium],
		Low:        agg.ByPriority[domain.TicketPriorityLow],
	}
	stats.Total = stats.Open + stats.InProgress + stats.Resolved + stats.Closed

	if !withMetrics {
		return stats
	}
	stats.Unassigned = agg.Unassigned
	stats.NoResponse = agg.AwaitingAnswer
	stats.AvgResponseTime = roundedUnits(agg.AvgResponseSeconds, 60)
	stats.AvgResolutionTime = roundedUnits(agg.AvgResolutionSeconds, 3600)
	return stats
}

func roundedUnits(seconds *float64, unit float64) *int64 {
	if seconds == nil {
		return nil
	}
	v := int64(math.Round(*seconds / unit))
	return &v
}
