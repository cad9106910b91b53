package rbac

import (
	"context"

	"go.uber.org/zap"

	"spensagi/portal/internal/metrics"
	"spensagi/portal/internal/model"
)

type Store interface {
	ParentHasStudent(ctx context.Context, parentID, studentID string) (bool, error)
	TeacherHasStudent(ctx context.Context, teacherID, studentID string) (bool, error)
	TeacherOwnsClass(ctx context.Context, teacherID, classID string) (bool, error)
	StudentInClass(ctx context.Context, studentID, classID string) (bool, error)
	ParentHasChildInClass(ctx context.Context, parentID, classID string) (bool, error)
}

// Authorizer answers whether an identity may see a given student or class.
// Lookup errors count as a denial.
type Authorizer struct {
	store  Store
	logger *zap.Logger
}

func NewAuthorizer(store Store, logger *zap.Logger) *Authorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authorizer{store: store, logger: logger}
}

func (a *Authorizer) CanAccessStudent(ctx context.Context, identity model.Identity, studentID string) bool {
	allowed := a.canAccessStudent(ctx, identity, studentID)
	if !allowed {
		metrics.AccessDenied.WithLabelValues("student").Inc()
	}
	return allowed
}

func (a *Authorizer) canAccessStudent(ctx context.Context, identity model.Identity, studentID string) bool {
	switch identity.Role {
	case model.RoleAdmin:
		return true
	case model.RoleStudent:
		return identity.ID == studentID
	case model.RoleParent:
		return a.check(a.store.ParentHasStudent(ctx, identity.ID, studentID))
	case model.RoleTeacher:
		return a.check(a.store.TeacherHasStudent(ctx, identity.ID, studentID))
	default:
		return false
	}
}

func (a *Authorizer) CanAccessClass(ctx context.Context, identity model.Identity, classID string) bool {
	allowed := a.canAccessClass(ctx, identity, classID)
	if !allowed {
		metrics.AccessDenied.WithLabelValues("class").Inc()
	}
	return allowed
}

func (a *Authorizer) canAccessClass(ctx context.Context, identity model.Identity, classID string) bool {
	switch identity.Role {
	case model.RoleAdmin:
		return true
	case model.RoleTeacher:
		return a.check(a.store.TeacherOwnsClass(ctx, identity.ID, classID))
	case model.RoleStudent:
		return a.check(a.store.StudentInClass(ctx, identity.ID, classID))
	case model.RoleParent:
		return a.check(a.store.ParentHasChildInClass(ctx, identity.ID, classID))
	default:
		return false
	}
}

func (a *Authorizer) check(allowed bool, err error) bool {
	if err != nil {
		a.logger.Warn("access lookup failed", zap.Error(err))
		return false
	}
	return allowed
}
