package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayush/whattobuild/internal/models"
	"github.com/ayush/whattobuild/internal/research"
	"github.com/ayush/whattobuild/internal/store"
)

// ErrAlreadyMonitoring is returned when the user already watches the niche.
var ErrAlreadyMonitoring = errors.New("already monitoring this niche")

// Store is the monitor CRUD surface.
type Store interface {
	CreateMonitor(ctx context.Context, m *models.MonitoredNiche) error
	ListMonitors(ctx context.Context, userID string) ([]models.MonitoredNiche, error)
	SetMonitorStatus(ctx context.Context, id, userID string, status models.MonitorStatus) (*models.MonitoredNiche, error)
	DeleteMonitor(ctx context.Context, id, userID string) error
}

type Service struct {
	store Store
}

func NewService(st Store) *Service {
	return &Service{store: st}
}

// Create subscribes userID to weekly research on a niche.
func (s *Service) Create(ctx context.Context, userID string, in models.CreateMonitorRequest) (*models.MonitoredNiche, error) {
	req := models.CreateRequest{Niche: in.Niche, SourceURL: in.SourceURL, Categories: in.Categories}
	if err := research.Validate(&req); err != nil {
		return nil, err
	}
	m := &models.MonitoredNiche{
		UserID:     userID,
		Niche:      req.Niche,
		SourceURL:  req.SourceURL,
		Categories: req.Categories,
	}
	if err := s.store.CreateMonitor(ctx, m); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%q: %w", req.Niche, ErrAlreadyMonitoring)
		}
		return nil, err
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]models.MonitoredNiche, error) {
	return s.store.ListMonitors(ctx, userID)
}

func (s *Service) Pause(ctx context.Context, userID, id string) (*models.MonitoredNiche, error) {
	return s.store.SetMonitorStatus(ctx, id, userID, models.MonitorPaused)
}

func (s *Service) Resume(ctx context.Context, userID, id string) (*models.MonitoredNiche, error) {
	return s.store.SetMonitorStatus(ctx, id, userID, models.MonitorActive)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteMonitor(ctx, id, userID)
}
