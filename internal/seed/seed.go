package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/deskflow/helpdesk/internal/auth"
	"github.com/deskflow/helpdesk/internal/domain"
	"github.com/deskflow/helpdesk/internal/persistence"
	"github.com/deskflow/helpdesk/internal/policy"
	"github.com/deskflow/helpdesk/internal/repository"
)

// Fixtures is the document read from a seed file.
type Fixtures struct {
	Users   []UserFixture   `yaml:"users"`
	Tickets []TicketFixture `yaml:"tickets"`
}

// UserFixture describes one account. Existing accounts are updated in place.
type UserFixture struct {
	Name       string `yaml:"name"`
	Email      string `yaml:"email"`
	Password   string `yaml:"password"`
	Role       string `yaml:"role"`
	ClientType string `yaml:"clientType,omitempty"`
}

// TicketFixture describes one ticket. Owner and Assignee are account emails.
type TicketFixture struct {
	Number      string           `yaml:"number"`
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	Status      string           `yaml:"status,omitempty"`
	Priority    string           `yaml:"priority,omitempty"`
	Category    string           `yaml:"category,omitempty"`
	Owner       string           `yaml:"owner"`
	Assignee    string           `yaml:"assignee,omitempty"`
	Comments    []CommentFixture `yaml:"comments,omitempty"`
}

// CommentFixture is a message posted on a seeded ticket.
type CommentFixture struct {
	Author   string `yaml:"author"`
	Message  string `yaml:"message"`
	Internal bool   `yaml:"internal,omitempty"`
}

// Load reads and parses a fixture file.
func Load(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return Parse(raw)
}

// Parse decodes fixtures, rejecting unknown keys.
func Parse(raw []byte) (*Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &fx, nil
}

// Result counts what Apply changed.
type Result struct {
	UsersCreated   int
	UsersUpdated   int
	TicketsCreated int
	TicketsSkipped int
	Comments       int
}

// Dependencies wires the seeder to storage.
type Dependencies struct {
	UserRepo    repository.UserRepository
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	TxManager   persistence.TxManager
	Logger      *zap.Logger
	BcryptCost  int
	Now         func() time.Time
}

// Seeder writes fixtures through the repositories.
type Seeder struct {
	deps Dependencies
}

// NewSeeder constructs a Seeder.
func NewSeeder(deps Dependencies) *Seeder {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Seeder{deps: deps}
}

// Apply upserts every account, then creates tickets whose number is not taken yet.
// Running it twice leaves the database unchanged apart from refreshed passwords.
func (s *Seeder) Apply(ctx context.Context, fx *Fixtures) (Result, error) {
	var res Result
	err := s.deps.TxManager.WithinTx(ctx, func(ctx context.Context) error {
		res = Result{}
		accounts := make(map[string]*domain.User, len(fx.Users))
		for i := range fx.Users {
			user, created, err := s.upsertUser(ctx, fx.Users[i])
			if err != nil {
				return err
			}
			if created {
				res.UsersCreated++
			} else {
				res.UsersUpdated++
			}
			accounts[user.Email] = user
		}

		for i := range fx.Tickets {
			comments, created, err := s.createTicket(ctx, fx.Tickets[i], accounts)
			if err != nil {
				return fmt.Errorf("ticket %q: %w", fx.Tickets[i].Title, err)
			}
			if !created {
				res.TicketsSkipped++
				continue
			}
			res.TicketsCreated++
			res.Comments += comments
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.deps.Logger.Info("seed applied",
		zap.Int("users_created", res.UsersCreated),
		zap.Int("users_updated", res.UsersUpdated),
		zap.Int("tickets_created", res.TicketsCreated),
		zap.Int("tickets_skipped", res.TicketsSkipped),
		zap.Int("comments", res.Comments),
	)
	return res, nil
}

func (s *Seeder) upsertUser(ctx context.Context, fx UserFixture) (*domain.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(fx.Email))
	if email == "" || fx.Password == "" {
		return nil, false, fmt.Errorf("user %q: email and password are required", fx.Name)
	}
	role, ok := domain.ParseRole(fx.Role)
	if !ok {
		return nil, false, fmt.Errorf("user %s: unknown role %q", email, fx.Role)
	}
	var clientType *domain.ClientType
	if fx.ClientType != "" {
		ct, ok := domain.ParseClientType(fx.ClientType)
		if !ok {
			return nil, false, fmt.Errorf("user %s: unknown client type %q", email, fx.ClientType)
		}
		clientType = &ct
	}
	hash, err := auth.HashPassword(fx.Password, s.deps.BcryptCost)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.deps.UserRepo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		user := &domain.User{Email: email, Name: fx.Name, PasswordHash: hash, Role: role, ClientType: clientType}
		if err := s.deps.UserRepo.Create(ctx, user); err != nil {
			return nil, false, fmt.Errorf("create user %s: %w", email, err)
		}
		return user, true, nil
	case err != nil:
		return nil, false, err
	}

	existing.Name = fx.Name
	existing.PasswordHash = hash
	existing.Role = role
	existing.ClientType = clientType
	if err := s.deps.UserRepo.Update(ctx, existing); err != nil {
		return nil, false, fmt.Errorf("update user %s: %w", email, err)
	}
	return existing, false, nil
}

func (s *Seeder) createTicket(ctx context.Context, fx TicketFixture, accounts map[string]*domain.User) (int, bool, error) {
	number := fx.Number
	if number == "" {
		last, err := s.deps.TicketRepo.LastNumber(ctx)
		if err != nil {
			return 0, false, err
		}
		number = domain.FormatTicketNumber(last + 1)
	}
	if _, err := s.deps.TicketRepo.GetByNumber(ctx, number); err == nil {
		return 0, false, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, err
	}

	owner, err := account(accounts, fx.Owner)
	if err != nil {
		return 0, false, err
	}
	status := domain.TicketStatusOpen
	if fx.Status != "" {
		parsed, ok := domain.ParseTicketStatus(fx.Status)
		if !ok {
			return 0, false, fmt.Errorf("unknown status %q", fx.Status)
		}
		status = parsed
	}
	priority := domain.TicketPriorityMedium
	if fx.Priority != "" {
		parsed, ok := domain.ParseTicketPriority(fx.Priority)
		if !ok {
			return 0, false, fmt.Errorf("unknown priority %q", fx.Priority)
		}
		priority = parsed
	}

	ticket := &domain.Ticket{
		TicketNumber: number,
		Title:        fx.Title,
		Description:  fx.Description,
		Status:       status,
		Priority:     priority,
		Source:       domain.DefaultTicketSource,
		CreatedByID:  owner.ID,
	}
	if fx.Category != "" {
		category := fx.Category
		ticket.Category = &category
	}
	if fx.Assignee != "" {
		assignee, err := account(accounts, fx.Assignee)
		if err != nil {
			return 0, false, err
		}
		if !assignee.IsAgent() {
			return 0, false, fmt.Errorf("assignee %s is not an agent", assignee.Email)
		}
		ticket.AssignedToID = &assignee.ID
	}
	if err := s.deps.TicketRepo.Create(ctx, ticket); err != nil {
		return 0, false, err
	}

	// Stamps follow the same lifecycle rules as changes made through the API.
	now := s.deps.Now().UTC()
	stamped := len(policy.ApplyStatus(ticket, status, now)) > 0

	for _, c := range fx.Comments {
		author, err := account(accounts, c.Author)
		if err != nil {
			return 0, false, err
		}
		comment := &domain.Comment{
			TicketID:   ticket.ID,
			UserID:     author.ID,
			Message:    c.Message,
			IsInternal: c.Internal && author.IsAgent(),
		}
		if err := s.deps.CommentRepo.Create(ctx, comment); err != nil {
			return 0, false, err
		}
		if author.IsAgent() && policy.ApplyAgentResponse(ticket, now) {
			stamped = true
		}
	}

	if stamped {
		if err := s.deps.TicketRepo.Update(ctx, ticket); err != nil {
			return 0, false, err
		}
	}
	return len(fx.Comments), true, nil
}

func account(accounts map[string]*domain.User, email string) (*domain.User, error) {
	user, ok := accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, fmt.Errorf("account %q is not part of the fixtures", email)
	}
	return user, nil
}
