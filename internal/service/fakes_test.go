package service_test

// In-memory repository fakes for the service tests. They mirror the Mongo
// repositories' observable behavior: sentinel errors, unique-key enforcement,
// conditional status transitions, and copy-on-read (a caller mutating a
// returned value must never reach the stored one, exactly as with decoded
// BSON documents).

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/repository"
	"alcyxob/yoga-studio/internal/storage"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func copyTemplate(t domain.PlanTemplate) domain.PlanTemplate {
	out := t
	out.Sections = domain.CloneSections(t.Sections)
	if t.LastUsedAt != nil {
		used := *t.LastUsedAt
		out.LastUsedAt = &used
	}
	return out
}

func copyAllocation(a domain.Allocation) domain.Allocation {
	out := a
	if a.ExecutionID != nil {
		id := *a.ExecutionID
		out.ExecutionID = &id
	}
	return out
}

func copyExecution(e domain.Execution) domain.Execution {
	out := e
	out.Snapshot = domain.CloneSections(e.Snapshot)
	out.MemberIDs = append([]primitive.ObjectID(nil), e.MemberIDs...)
	if e.InstructorID != nil {
		id := *e.InstructorID
		out.InstructorID = &id
	}
	return out
}

// --- Exercise catalog fake ---

type fakeExerciseRepo struct {
	mu    sync.RWMutex
	table map[primitive.ObjectID]domain.Exercise
}

var _ repository.ExerciseRepository = (*fakeExerciseRepo)(nil)

func newFakeExerciseRepo() *fakeExerciseRepo {
	return &fakeExerciseRepo{table: make(map[primitive.ObjectID]domain.Exercise)}
}

func (r *fakeExerciseRepo) put(ex domain.Exercise) domain.Exercise {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ex.ID == primitive.NilObjectID {
		ex.ID = primitive.NewObjectID()
	}
	r.table[ex.ID] = ex
	return ex
}

func (r *fakeExerciseRepo) remove(id primitive.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.table, id)
}

func (r *fakeExerciseRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ex, ok := r.table[id]; ok {
		return &ex, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeExerciseRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.Exercise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[primitive.ObjectID]domain.Exercise, len(ids))
	for _, id := range ids {
		if ex, ok := r.table[id]; ok {
			out[id] = ex
		}
	}
	return out, nil
}

func (r *fakeExerciseRepo) List(ctx context.Context, activeOnly bool) ([]domain.Exercise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Exercise
	for _, ex := range r.table {
		if activeOnly && !ex.IsActive {
			continue
		}
		out = append(out, ex)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeExerciseRepo) ListByCategory(ctx context.Context, category domain.ExerciseCategory) ([]domain.Exercise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Exercise
	for _, ex := range r.table {
		if ex.IsActive && ex.Category == category {
			out = append(out, ex)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- Slot fake ---

type fakeSlotRepo struct {
	mu    sync.RWMutex
	table map[primitive.ObjectID]domain.Slot
}

var _ repository.SlotRepository = (*fakeSlotRepo)(nil)

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{table: make(map[primitive.ObjectID]domain.Slot)}
}

func (r *fakeSlotRepo) put(slot domain.Slot) domain.Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot.ID == primitive.NilObjectID {
		slot.ID = primitive.NewObjectID()
	}
	r.table[slot.ID] = slot
	return slot
}

func (r *fakeSlotRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if slot, ok := r.table[id]; ok {
		return &slot, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSlotRepo) List(ctx context.Context, activeOnly bool) ([]domain.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Slot
	for _, slot := range r.table {
		if activeOnly && !slot.IsActive {
			continue
		}
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

// --- Template fake ---

type fakeTemplateRepo struct {
	mu    sync.RWMutex
	table map[primitive.ObjectID]*domain.PlanTemplate
}

var _ repository.TemplateRepository = (*fakeTemplateRepo)(nil)

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{table: make(map[primitive.ObjectID]*domain.PlanTemplate)}
}

func (r *fakeTemplateRepo) Create(ctx context.Context, template *domain.PlanTemplate) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	template.ID = primitive.NewObjectID()
	template.Version = 1
	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now
	stored := copyTemplate(*template)
	r.table[template.ID] = &stored
	return template.ID, nil
}

func (r *fakeTemplateRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.table[id]; ok {
		out := copyTemplate(*t)
		return &out, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTemplateRepo) List(ctx context.Context, activeOnly bool) ([]domain.PlanTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.PlanTemplate
	for _, t := range r.table {
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, copyTemplate(*t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeTemplateRepo) Update(ctx context.Context, template *domain.PlanTemplate, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.table[template.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return repository.ErrStaleVersion
	}
	stored.Name = template.Name
	stored.Note = template.Note
	stored.Level = template.Level
	stored.Sections = domain.CloneSections(template.Sections)
	stored.IsActive = template.IsActive
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeTemplateRepo) IncrementUsage(ctx context.Context, id primitive.ObjectID, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.table[id]
	if !ok {
		return repository.ErrNotFound
	}
	stored.UsageCount++
	used := usedAt.UTC()
	stored.LastUsedAt = &used
	return nil
}

func (r *fakeTemplateRepo) SetUsageCount(ctx context.Context, id primitive.ObjectID, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.table[id]
	if !ok {
		return repository.ErrNotFound
	}
	stored.UsageCount = count
	return nil
}

// --- Allocation fake ---

type fakeAllocationRepo struct {
	mu    sync.RWMutex
	table map[primitive.ObjectID]*domain.Allocation
}

var _ repository.AllocationRepository = (*fakeAllocationRepo)(nil)

func newFakeAllocationRepo() *fakeAllocationRepo {
	return &fakeAllocationRepo{table: make(map[primitive.ObjectID]*domain.Allocation)}
}

func (r *fakeAllocationRepo) Create(ctx context.Context, allocation *domain.Allocation) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.table {
		if a.Active && a.SlotID == allocation.SlotID && a.Date == allocation.Date {
			return primitive.NilObjectID, repository.ErrDuplicateKey
		}
	}
	allocation.ID = primitive.NewObjectID()
	allocation.Status = domain.AllocationScheduled
	allocation.Active = true
	now := time.Now().UTC()
	allocation.CreatedAt = now
	allocation.UpdatedAt = now
	stored := copyAllocation(*allocation)
	r.table[allocation.ID] = &stored
	return allocation.ID, nil
}

func (r *fakeAllocationRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Allocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.table[id]; ok {
		out := copyAllocation(*a)
		return &out, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAllocationRepo) GetActiveBySlotDate(ctx context.Context, slotID primitive.ObjectID, date domain.Date) (*domain.Allocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.table {
		if a.Active && a.SlotID == slotID && a.Date == date {
			out := copyAllocation(*a)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAllocationRepo) ListByDate(ctx context.Context, date domain.Date) ([]domain.Allocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Allocation
	for _, a := range r.table {
		if a.Date == date {
			out = append(out, copyAllocation(*a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeAllocationRepo) ListRange(ctx context.Context, from, to domain.Date) ([]domain.Allocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Allocation
	for _, a := range r.table {
		if !from.IsZero() && a.Date.Before(from) {
			continue
		}
		if !to.IsZero() && a.Date.After(to) {
			continue
		}
		out = append(out, copyAllocation(*a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *fakeAllocationRepo) ListScheduledThrough(ctx context.Context, date domain.Date) ([]domain.Allocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Allocation
	for _, a := range r.table {
		if a.Status == domain.AllocationScheduled && !a.Date.After(date) {
			out = append(out, copyAllocation(*a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *fakeAllocationRepo) MarkExecuted(ctx context.Context, id, executionID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.table[id]
	if !ok || stored.Status != domain.AllocationScheduled {
		return repository.ErrNotFound
	}
	stored.Status = domain.AllocationExecuted
	stored.ExecutionID = &executionID
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeAllocationRepo) Cancel(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.table[id]
	if !ok || stored.Status != domain.AllocationScheduled {
		return repository.ErrNotFound
	}
	stored.Status = domain.AllocationCancelled
	stored.Active = false
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

// --- Execution fake ---

type fakeExecutionRepo struct {
	mu    sync.RWMutex
	table map[primitive.ObjectID]*domain.Execution
}

var _ repository.ExecutionRepository = (*fakeExecutionRepo)(nil)

func newFakeExecutionRepo() *fakeExecutionRepo {
	return &fakeExecutionRepo{table: make(map[primitive.ObjectID]*domain.Execution)}
}

func (r *fakeExecutionRepo) Create(ctx context.Context, execution *domain.Execution) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.table {
		if e.SlotID == execution.SlotID && e.Date == execution.Date {
			return primitive.NilObjectID, repository.ErrDuplicateKey
		}
	}
	execution.ID = primitive.NewObjectID()
	if execution.RecordedAt.IsZero() {
		execution.RecordedAt = time.Now().UTC()
	}
	stored := copyExecution(*execution)
	r.table[execution.ID] = &stored
	return execution.ID, nil
}

func (r *fakeExecutionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.table[id]; ok {
		out := copyExecution(*e)
		return &out, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeExecutionRepo) GetBySlotDate(ctx context.Context, slotID primitive.ObjectID, date domain.Date) (*domain.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.table {
		if e.SlotID == slotID && e.Date == date {
			out := copyExecution(*e)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeExecutionRepo) ListRange(ctx context.Context, from, to domain.Date) ([]domain.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Execution
	for _, e := range r.table {
		if !from.IsZero() && e.Date.Before(from) {
			continue
		}
		if !to.IsZero() && e.Date.After(to) {
			continue
		}
		out = append(out, copyExecution(*e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (r *fakeExecutionRepo) ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Execution
	for _, e := range r.table {
		for _, id := range e.MemberIDs {
			if id == memberID {
				out = append(out, copyExecution(*e))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (r *fakeExecutionRepo) ListByTemplate(ctx context.Context, templateID primitive.ObjectID) ([]domain.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Execution
	for _, e := range r.table {
		if e.TemplateID == templateID {
			out = append(out, copyExecution(*e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (r *fakeExecutionRepo) CountByTemplateSince(ctx context.Context, templateID primitive.ObjectID, since domain.Date) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, e := range r.table {
		if e.TemplateID == templateID && !e.Date.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeExecutionRepo) CountsByTemplate(ctx context.Context) (map[primitive.ObjectID]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[primitive.ObjectID]int)
	for _, e := range r.table {
		counts[e.TemplateID]++
	}
	return counts, nil
}

// --- Attendance fake ---

type fakeAttendance struct {
	mu    sync.RWMutex
	table map[string][]primitive.ObjectID
}

var _ repository.AttendanceReader = (*fakeAttendance)(nil)

func newFakeAttendance() *fakeAttendance {
	return &fakeAttendance{table: make(map[string][]primitive.ObjectID)}
}

func attendanceKey(slotID primitive.ObjectID, date domain.Date) string {
	return slotID.Hex() + "|" + string(date)
}

func (r *fakeAttendance) mark(slotID primitive.ObjectID, date domain.Date, members ...primitive.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table[attendanceKey(slotID, date)] = members
}

func (r *fakeAttendance) GetPresentMembers(ctx context.Context, slotID primitive.ObjectID, date domain.Date) ([]primitive.ObjectID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.table[attendanceKey(slotID, date)]
	if !ok {
		return []primitive.ObjectID{}, nil
	}
	return append([]primitive.ObjectID(nil), members...), nil
}

// --- File storage fake ---

type storedObject struct {
	ContentType string
	Body        []byte
}

type fakeFileStorage struct {
	mu      sync.RWMutex
	objects map[string]storedObject
}

var _ storage.FileStorage = (*fakeFileStorage)(nil)

func newFakeFileStorage() *fakeFileStorage {
	return &fakeFileStorage{objects: make(map[string]storedObject)}
}

func (s *fakeFileStorage) UploadObject(ctx context.Context, objectKey string, contentType string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectKey] = storedObject{ContentType: contentType, Body: append([]byte(nil), body...)}
	return nil
}

func (s *fakeFileStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	return "https://files.local/" + objectKey + "?sig=test", nil
}

func (s *fakeFileStorage) get(objectKey string) (storedObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[objectKey]
	return obj, ok
}

// --- Test data builders ---

func seedExercise(repo *fakeExerciseRepo, name string, primary, secondary []domain.BodyRegion, benefits []string) domain.Exercise {
	return repo.put(domain.Exercise{
		Name:             name,
		Category:         domain.CategoryPosture,
		Level:            domain.LevelBeginner,
		PrimaryRegions:   primary,
		SecondaryRegions: secondary,
		Benefits:         benefits,
		IsActive:         true,
	})
}

func seedSlot(repo *fakeSlotRepo, name, startTime string) domain.Slot {
	return repo.put(domain.Slot{
		Name:        name,
		StartTime:   startTime,
		DurationMin: 60,
		IsActive:    true,
	})
}

// singleSection builds a one-section plan holding the given exercises in order.
func singleSection(typ domain.SectionType, exerciseIDs ...primitive.ObjectID) []domain.PlanSection {
	items := make([]domain.PlanItem, len(exerciseIDs))
	for i, id := range exerciseIDs {
		items[i] = domain.PlanItem{ExerciseID: id, Order: i + 1, DurationMin: 5}
	}
	return []domain.PlanSection{{Type: typ, Items: items}}
}

// seedTemplate inserts a template directly through the repository, bypassing
// the service-level catalog checks. Handy for tests that don't care about the
// plan's content.
func seedTemplate(repo *fakeTemplateRepo, name string, sections []domain.PlanSection) *domain.PlanTemplate {
	template := &domain.PlanTemplate{
		Name:     name,
		Level:    domain.LevelBeginner,
		Sections: sections,
		IsActive: true,
	}
	id, _ := repo.Create(context.Background(), template)
	template.ID = id
	return template
}

// seedExecution inserts a history record directly through the repository,
// filling in whatever identifying fields the caller left blank.
func seedExecution(t *testing.T, repo *fakeExecutionRepo, e domain.Execution) domain.Execution {
	t.Helper()
	if e.SlotID == primitive.NilObjectID {
		e.SlotID = primitive.NewObjectID()
	}
	if e.TemplateName == "" {
		e.TemplateName = "Seeded Plan"
	}
	if e.TemplateLevel == "" {
		e.TemplateLevel = domain.LevelBeginner
	}
	_, err := repo.Create(context.Background(), &e)
	require.NoError(t, err)
	return e
}
