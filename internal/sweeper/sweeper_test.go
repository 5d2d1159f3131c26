package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"meetlines/backend/internal/domain"
	"meetlines/backend/internal/store"
)

type fakeRepo struct {
	dueToStart    []domain.Appointment
	dueToComplete []domain.Appointment
	updated       []domain.Appointment
	guards        []domain.Status
	updateErr     map[uuid.UUID]error
	listErr       error
}

func (f *fakeRepo) ListDueToStart(ctx context.Context, now time.Time) ([]domain.Appointment, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.dueToStart, nil
}

func (f *fakeRepo) ListDueToComplete(ctx context.Context, now time.Time) ([]domain.Appointment, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.dueToComplete, nil
}

func (f *fakeRepo) UpdateIfStatus(ctx context.Context, appt domain.Appointment, prev domain.Status) (domain.Appointment, error) {
	f.guards = append(f.guards, prev)
	if err := f.updateErr[appt.ID]; err != nil {
		return domain.Appointment{}, err
	}
	f.updated = append(f.updated, appt)
	return appt, nil
}

func (f *fakeRepo) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	panic("Get not configured")
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	panic("Delete not configured")
}

func (f *fakeRepo) ListByScope(ctx context.Context, scopeID uuid.UUID, statuses ...domain.Status) ([]domain.Appointment, error) {
	panic("ListByScope not configured")
}

func (f *fakeRepo) ListBySubject(ctx context.Context, subjectID uuid.UUID, statuses ...domain.Status) ([]domain.Appointment, error) {
	panic("ListBySubject not configured")
}

func (f *fakeRepo) ListActiveInWindow(ctx context.Context, scopeID uuid.UUID, assigneeID *uuid.UUID, window domain.Interval) ([]domain.Appointment, error) {
	panic("ListActiveInWindow not configured")
}

func (f *fakeRepo) InScopeTransaction(ctx context.Context, scopeID uuid.UUID, fn func(ctx context.Context, tx store.BookingTx) error) error {
	panic("InScopeTransaction not configured")
}

var sweepNow = time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)

func appointment(id string, status domain.Status, start, end time.Time) domain.Appointment {
	return domain.Appointment{
		ID:        uuid.MustParse(id),
		ScopeID:   uuid.MustParse("00000000-0000-0000-0000-000000000101"),
		SubjectID: uuid.MustParse("00000000-0000-0000-0000-000000000201"),
		ServiceID: 7,
		StartTime: start,
		EndTime:   end,
		Status:    status,
	}
}

func newTestSweeper(repo store.AppointmentRepository) *Sweeper {
	sw := New(repo, nil, time.Minute)
	sw.now = func() time.Time { return sweepNow }
	return sw
}

func TestSweep_StartsDueAppointments(t *testing.T) {
	repo := &fakeRepo{
		dueToStart: []domain.Appointment{
			appointment("00000000-0000-0000-0000-000000000901", domain.StatusPending, sweepNow.Add(-time.Minute), sweepNow.Add(time.Hour)),
		},
	}
	newTestSweeper(repo).Sweep(context.Background())

	if len(repo.updated) != 1 {
		t.Fatalf("updates = %d, want 1", len(repo.updated))
	}
	if repo.updated[0].Status != domain.StatusInProgress {
		t.Fatalf("status = %s, want %s", repo.updated[0].Status, domain.StatusInProgress)
	}
	if len(repo.guards) != 1 || repo.guards[0] != domain.StatusPending {
		t.Fatalf("guards = %v, want [pending]", repo.guards)
	}
}

func TestSweep_CompletesDueAppointments(t *testing.T) {
	repo := &fakeRepo{
		dueToComplete: []domain.Appointment{
			appointment("00000000-0000-0000-0000-000000000902", domain.StatusInProgress, sweepNow.Add(-2*time.Hour), sweepNow.Add(-time.Minute)),
		},
	}
	newTestSweeper(repo).Sweep(context.Background())

	if len(repo.updated) != 1 {
		t.Fatalf("updates = %d, want 1", len(repo.updated))
	}
	if repo.updated[0].Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want %s", repo.updated[0].Status, domain.StatusCompleted)
	}
	if len(repo.guards) != 1 || repo.guards[0] != domain.StatusInProgress {
		t.Fatalf("guards = %v, want [in_progress]", repo.guards)
	}
}

func TestSweep_NotYetDueLeftAlone(t *testing.T) {
	// A pending appointment whose start is still ahead can appear if the
	// query boundary and the sweep clock disagree; it must not be started.
	repo := &fakeRepo{
		dueToStart: []domain.Appointment{
			appointment("00000000-0000-0000-0000-000000000903", domain.StatusPending, sweepNow.Add(time.Minute), sweepNow.Add(time.Hour)),
		},
	}
	newTestSweeper(repo).Sweep(context.Background())

	if len(repo.updated) != 0 {
		t.Fatalf("updates = %d, want 0", len(repo.updated))
	}
}

func TestSweep_SecondRunFindsNothing(t *testing.T) {
	repo := &fakeRepo{
		dueToStart: []domain.Appointment{
			appointment("00000000-0000-0000-0000-000000000904", domain.StatusPending, sweepNow.Add(-time.Minute), sweepNow.Add(time.Hour)),
		},
	}
	sw := newTestSweeper(repo)
	sw.Sweep(context.Background())

	// The transition is persisted, so the next pass sees an empty queue.
	repo.dueToStart = nil
	sw.Sweep(context.Background())

	if len(repo.updated) != 1 {
		t.Fatalf("updates = %d, want 1", len(repo.updated))
	}
}

func TestSweep_FailureIsolation(t *testing.T) {
	broken := appointment("00000000-0000-0000-0000-000000000905", domain.StatusPending, sweepNow.Add(-time.Minute), sweepNow.Add(time.Hour))
	healthy := appointment("00000000-0000-0000-0000-000000000906", domain.StatusPending, sweepNow.Add(-time.Minute), sweepNow.Add(time.Hour))
	repo := &fakeRepo{
		dueToStart: []domain.Appointment{broken, healthy},
		updateErr:  map[uuid.UUID]error{broken.ID: errors.New("write failed")},
	}
	newTestSweeper(repo).Sweep(context.Background())

	if len(repo.updated) != 1 {
		t.Fatalf("updates = %d, want 1", len(repo.updated))
	}
	if repo.updated[0].ID != healthy.ID {
		t.Fatalf("updated id = %s, want %s", repo.updated[0].ID, healthy.ID)
	}
}

func TestSweep_ConcurrentCancelNotOverwritten(t *testing.T) {
	// The appointment was cancelled between the due query and the write. The
	// guarded update reports a stale status and the row stays untouched; the
	// batch keeps going.
	raced := appointment("00000000-0000-0000-0000-000000000907", domain.StatusPending, sweepNow.Add(-time.Minute), sweepNow.Add(time.Hour))
	healthy := appointment("00000000-0000-0000-0000-000000000908", domain.StatusPending, sweepNow.Add(-time.Minute), sweepNow.Add(time.Hour))
	repo := &fakeRepo{
		dueToStart: []domain.Appointment{raced, healthy},
		updateErr:  map[uuid.UUID]error{raced.ID: store.ErrStale},
	}
	newTestSweeper(repo).Sweep(context.Background())

	if len(repo.updated) != 1 {
		t.Fatalf("updates = %d, want 1", len(repo.updated))
	}
	if repo.updated[0].ID != healthy.ID {
		t.Fatalf("updated id = %s, want %s", repo.updated[0].ID, healthy.ID)
	}
}

func TestSweep_ListErrorSkipsPass(t *testing.T) {
	repo := &fakeRepo{listErr: errors.New("db down")}
	newTestSweeper(repo).Sweep(context.Background())

	if len(repo.updated) != 0 {
		t.Fatalf("updates = %d, want 0", len(repo.updated))
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	repo := &fakeRepo{}
	sw := New(repo, nil, 10*time.Millisecond)
	sw.now = func() time.Time { return sweepNow }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}
