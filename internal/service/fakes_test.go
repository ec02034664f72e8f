package service

import (
	"context"
	"sort"
	"time"

	"openlearn/course-app/internal/domain"
	"openlearn/course-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes for service tests. They mirror the Mongo
// implementations' contracts: copies in, copies out, sentinel errors, and
// the submission fake enforces the same version-matched update.

type fakeUserRepo struct {
	users      map[primitive.ObjectID]*domain.User
	rosterSize int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	user.ID = id
	copied := *user
	f.users[id] = &copied
	return id, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) EnrollStudent(_ context.Context, studentID, courseID primitive.ObjectID) error {
	u, ok := f.users[studentID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, existing := range u.EnrolledCourseIDs {
		if existing == courseID {
			return nil
		}
	}
	u.EnrolledCourseIDs = append(u.EnrolledCourseIDs, courseID)
	return nil
}

func (f *fakeUserRepo) CountRoster(_ context.Context, _ primitive.ObjectID) (int, error) {
	return f.rosterSize, nil
}

type fakeModuleRepo struct {
	modules map[primitive.ObjectID]*domain.CourseModule
}

func newFakeModuleRepo() *fakeModuleRepo {
	return &fakeModuleRepo{modules: make(map[primitive.ObjectID]*domain.CourseModule)}
}

func (f *fakeModuleRepo) Create(_ context.Context, module *domain.CourseModule) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	module.ID = id
	copied := *module
	f.modules[id] = &copied
	return id, nil
}

func (f *fakeModuleRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.CourseModule, error) {
	m, ok := f.modules[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeModuleRepo) GetByCourseID(_ context.Context, courseID primitive.ObjectID) ([]domain.CourseModule, error) {
	var out []domain.CourseModule
	for _, m := range f.modules {
		if m.CourseID == courseID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

type fakeComponentRepo struct {
	components map[primitive.ObjectID]*domain.Component
}

func newFakeComponentRepo() *fakeComponentRepo {
	return &fakeComponentRepo{components: make(map[primitive.ObjectID]*domain.Component)}
}

func (f *fakeComponentRepo) Create(_ context.Context, component *domain.Component) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	component.ID = id
	copied := *component
	f.components[id] = &copied
	return id, nil
}

func (f *fakeComponentRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Component, error) {
	c, ok := f.components[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeComponentRepo) GetByModuleID(_ context.Context, moduleID primitive.ObjectID) ([]domain.Component, error) {
	var out []domain.Component
	for _, c := range f.components {
		if c.ModuleID == moduleID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (f *fakeComponentRepo) Update(_ context.Context, component *domain.Component) error {
	stored, ok := f.components[component.ID]
	if !ok {
		return repository.ErrNotFound
	}
	copied := *component
	copied.Type = stored.Type // type is never rewritten
	f.components[component.ID] = &copied
	return nil
}

func (f *fakeComponentRepo) Delete(_ context.Context, id, teacherID primitive.ObjectID) error {
	c, ok := f.components[id]
	if !ok || c.TeacherID != teacherID {
		return repository.ErrNotFound
	}
	delete(f.components, id)
	return nil
}

type fakeActivityRepo struct {
	activities map[primitive.ObjectID]*domain.Activity
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{activities: make(map[primitive.ObjectID]*domain.Activity)}
}

func (f *fakeActivityRepo) Create(_ context.Context, activity *domain.Activity) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	activity.ID = id
	copied := *activity
	f.activities[id] = &copied
	return id, nil
}

func (f *fakeActivityRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Activity, error) {
	a, ok := f.activities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeActivityRepo) GetByCourseID(_ context.Context, courseID primitive.ObjectID) ([]domain.Activity, error) {
	var out []domain.Activity
	for _, a := range f.activities {
		if a.CourseID == courseID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeActivityRepo) Update(_ context.Context, activity *domain.Activity) error {
	if _, ok := f.activities[activity.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *activity
	f.activities[activity.ID] = &copied
	return nil
}

func (f *fakeActivityRepo) Delete(_ context.Context, id, teacherID primitive.ObjectID) error {
	a, ok := f.activities[id]
	if !ok || a.CreatedBy != teacherID {
		return repository.ErrNotFound
	}
	delete(f.activities, id)
	return nil
}

type fakeSubmissionRepo struct {
	submissions map[primitive.ObjectID]*domain.ActivitySubmission
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{submissions: make(map[primitive.ObjectID]*domain.ActivitySubmission)}
}

func (f *fakeSubmissionRepo) Create(_ context.Context, submission *domain.ActivitySubmission) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	submission.ID = id
	submission.Version = 1
	copied := *submission
	f.submissions[id] = &copied
	return id, nil
}

func (f *fakeSubmissionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ActivitySubmission, error) {
	s, ok := f.submissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSubmissionRepo) GetByActivityAndStudent(_ context.Context, activityID, studentID primitive.ObjectID) (*domain.ActivitySubmission, error) {
	for _, s := range f.submissions {
		if s.ActivityID == activityID && s.StudentID == studentID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSubmissionRepo) GetByActivityID(_ context.Context, activityID primitive.ObjectID) ([]domain.ActivitySubmission, error) {
	var out []domain.ActivitySubmission
	for _, s := range f.submissions {
		if s.ActivityID == activityID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSubmissionRepo) Update(_ context.Context, submission *domain.ActivitySubmission) error {
	stored, ok := f.submissions[submission.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != submission.Version {
		return repository.ErrVersionConflict
	}
	copied := *submission
	copied.Version = stored.Version + 1
	copied.UpdatedAt = time.Now().UTC()
	f.submissions[submission.ID] = &copied
	submission.Version = copied.Version
	return nil
}

type fakeAttemptRepo struct {
	attempts []*domain.QuizAttempt
}

func newFakeAttemptRepo() *fakeAttemptRepo { return &fakeAttemptRepo{} }

func (f *fakeAttemptRepo) Create(_ context.Context, attempt *domain.QuizAttempt) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	attempt.ID = id
	copied := *attempt
	f.attempts = append(f.attempts, &copied)
	return id, nil
}

func (f *fakeAttemptRepo) CountByComponentAndStudent(_ context.Context, componentID, studentID primitive.ObjectID) (int, error) {
	count := 0
	for _, a := range f.attempts {
		if a.ComponentID == componentID && a.StudentID == studentID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttemptRepo) GetByComponentAndStudent(_ context.Context, componentID, studentID primitive.ObjectID) ([]domain.QuizAttempt, error) {
	var out []domain.QuizAttempt
	for _, a := range f.attempts {
		if a.ComponentID == componentID && a.StudentID == studentID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAttemptRepo) GetByComponentID(_ context.Context, componentID primitive.ObjectID) ([]domain.QuizAttempt, error) {
	var out []domain.QuizAttempt
	for _, a := range f.attempts {
		if a.ComponentID == componentID {
			out = append(out, *a)
		}
	}
	return out, nil
}

// fakeStorage hands back deterministic URLs and records deletions.
type fakeStorage struct {
	deleted []string
}

func (f *fakeStorage) GeneratePresignedUploadURL(_ context.Context, objectKey, _ string, _ time.Duration) (string, error) {
	return "https://storage.test/upload/" + objectKey, nil
}

func (f *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://storage.test/download/" + objectKey, nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	f.deleted = append(f.deleted, objectKey)
	return nil
}
