package store

import (
	"github.com/starford/mimir/internal/models"
)

// SaveCheckpoint validates and persists a checkpoint, assigning its id and
// timestamps when absent. Saving an existing id overwrites the record.
func (s *Store) SaveCheckpoint(cp *models.Checkpoint) (*models.Checkpoint, error) {
	if cp.Global {
		cp.WorkspaceID = models.GlobalWorkspace
	}
	if err := checkWorkspace(cp.WorkspaceID); err != nil {
		return nil, err
	}
	if err := cp.Validate(); err != nil {
		return nil, toValidationError(err)
	}
	now := s.now()
	if cp.ID == "" {
		cp.ID = models.NewID(now)
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	if cp.TTLHours == 0 {
		cp.TTLHours = s.policy.DefaultTTLHours
	}
	if err := s.writeRecord(cp.WorkspaceID, models.KindCheckpoint, cp.ID, cp); err != nil {
		return nil, err
	}
	s.sweepKind(cp.WorkspaceID, models.KindCheckpoint)
	return cp, nil
}

// GetCheckpoint returns one checkpoint or ErrNotFound.
func (s *Store) GetCheckpoint(ws, id string) (*models.Checkpoint, error) {
	if err := checkWorkspace(ws); err != nil {
		return nil, err
	}
	return readRecord[models.Checkpoint](s, ws, models.KindCheckpoint, id)
}

// ListCheckpoints returns all checkpoints of one workspace, oldest first.
func (s *Store) ListCheckpoints(ws string) ([]models.Checkpoint, error) {
	if err := checkWorkspace(ws); err != nil {
		return nil, err
	}
	s.maybeSweep(ws)
	return listRecords[models.Checkpoint](s, ws, models.KindCheckpoint)
}

// DeleteCheckpoint removes one checkpoint.
func (s *Store) DeleteCheckpoint(ws, id string) error {
	if err := checkWorkspace(ws); err != nil {
		return err
	}
	return s.deleteRecord(ws, models.KindCheckpoint, id)
}

// SaveTodoList validates and persists a todo list.
func (s *Store) SaveTodoList(l *models.TodoList) (*models.TodoList, error) {
	if err := checkWorkspace(l.WorkspaceID); err != nil {
		return nil, err
	}
	if err := l.Validate(); err != nil {
		return nil, toValidationError(err)
	}
	now := s.now()
	if l.ID == "" {
		l.ID = models.NewID(now)
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	if l.TTLHours == 0 {
		l.TTLHours = s.policy.DefaultTTLHours
	}
	for i := range l.Items {
		if l.Items[i].CreatedAt.IsZero() {
			l.Items[i].CreatedAt = now
		}
		if l.Items[i].UpdatedAt.IsZero() {
			l.Items[i].UpdatedAt = now
		}
	}
	if err := s.writeRecord(l.WorkspaceID, models.KindTodoList, l.ID, l); err != nil {
		return nil, err
	}
	s.sweepKind(l.WorkspaceID, models.KindTodoList)
	return l, nil
}

// GetTodoList returns one todo list or ErrNotFound.
func (s *Store) GetTodoList(ws, id string) (*models.TodoList, error) {
	if err := checkWorkspace(ws); err != nil {
		return nil, err
	}
	return readRecord[models.TodoList](s, ws, models.KindTodoList, id)
}

// ListTodoLists returns all todo lists of one workspace, oldest first.
func (s *Store) ListTodoLists(ws string) ([]models.TodoList, error) {
	if err := checkWorkspace(ws); err != nil {
		return nil, err
	}
	s.maybeSweep(ws)
	return listRecords[models.TodoList](s, ws, models.KindTodoList)
}

// DeleteTodoList removes one todo list.
func (s *Store) DeleteTodoList(ws, id string) error {
	if err := checkWorkspace(ws); err != nil {
		return err
	}
	return s.deleteRecord(ws, models.KindTodoList, id)
}

// SavePlan validates and persists a plan.
func (s *Store) SavePlan(p *models.Plan) (*models.Plan, error) {
	if err := checkWorkspace(p.WorkspaceID); err != nil {
		return nil, err
	}
	if p.Status == "" {
		p.Status = models.PlanDraft
	}
	if err := p.Validate(); err != nil {
		return nil, toValidationError(err)
	}
	now := s.now()
	if p.ID == "" {
		p.ID = models.NewID(now)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.TTLHours == 0 {
		p.TTLHours = s.policy.DefaultTTLHours
	}
	if err := s.writeRecord(p.WorkspaceID, models.KindPlan, p.ID, p); err != nil {
		return nil, err
	}
	s.sweepKind(p.WorkspaceID, models.KindPlan)
	return p, nil
}

// GetPlan returns one plan or ErrNotFound.
func (s *Store) GetPlan(ws, id string) (*models.Plan, error) {
	if err := checkWorkspace(ws); err != nil {
		return nil, err
	}
	return readRecord[models.Plan](s, ws, models.KindPlan, id)
}

// ListPlans returns all plans of one workspace, oldest first.
func (s *Store) ListPlans(ws string) ([]models.Plan, error) {
	if err := checkWorkspace(ws); err != nil {
		return nil, err
	}
	s.maybeSweep(ws)
	return listRecords[models.Plan](s, ws, models.KindPlan)
}

// DeletePlan removes one plan.
func (s *Store) DeletePlan(ws, id string) error {
	if err := checkWorkspace(ws); err != nil {
		return err
	}
	return s.deleteRecord(ws, models.KindPlan, id)
}

// SaveChronicleEntry validates and persists a chronicle entry. Chronicle
// records are append-only journal lines and are not subject to retention.
func (s *Store) SaveChronicleEntry(e *models.ChronicleEntry) (*models.ChronicleEntry, error) {
	if err := checkWorkspace(e.WorkspaceID); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, toValidationError(err)
	}
	now := s.now()
	if e.ID == "" {
		e.ID = models.NewID(now)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	if err := s.writeRecord(e.WorkspaceID, models.KindChronicle, e.ID, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListChronicle returns all chronicle entries of one workspace, oldest first.
func (s *Store) ListChronicle(ws string) ([]models.ChronicleEntry, error) {
	if err := checkWorkspace(ws); err != nil {
		return nil, err
	}
	return listRecords[models.ChronicleEntry](s, ws, models.KindChronicle)
}
