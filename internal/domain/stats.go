package domain

// TicketAggregate holds raw counts and durations computed by the store.
type TicketAggregate struct {
	ByStatus   map[TicketStatus]int
	ByPriority map[TicketPriority]int

	Unassigned     int
	AwaitingAnswer int

	// Mean seconds between creation and the stamp; nil when no ticket has one.
	AvgResponseSeconds   *float64
	AvgResolutionSeconds *float64
}

// TicketStats is the caller-facing dashboard view.
type TicketStats struct {
	Open       int
	InProgress int
	Resolved   int
	Closed     int
	Total      int

	Urgent int
	High   int
	Medium int
	Low    int

	Unassigned        int
	NoResponse        int
	AvgResponseTime   *int64
	AvgResolutionTime *int64
}
