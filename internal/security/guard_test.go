package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security/auth"
)

func newTestGuard() (*Guard, *auth.TokenManager) {
	tm := auth.NewTokenManager("secret", "storefront", "storefront-api", time.Hour)
	return NewGuard(tm, nil, nil), tm
}

func issueFor(t *testing.T, tm *auth.TokenManager, role domain.Role) string {
	t.Helper()
	token, _, err := tm.Issue(&domain.User{ID: 7, Email: "u@example.com", Role: role})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return token
}

func TestAuthenticateBuildsPrincipal(t *testing.T) {
	guard, tm := newTestGuard()
	token := issueFor(t, tm, domain.RoleManager)

	p, err := guard.Authenticate(token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.UserID != 7 || p.Role != domain.RoleManager {
		t.Errorf("principal = %+v", p)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	guard, _ := newTestGuard()

	if _, err := guard.Authenticate(""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("empty token err = %v, want ErrUnauthenticated", err)
	}
	if _, err := guard.Authenticate("garbage"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("garbage token err = %v, want ErrUnauthenticated", err)
	}

	// A token from a different signer is rejected even with valid claims.
	other := auth.NewTokenManager("other-secret", "storefront", "storefront-api", time.Hour)
	token := issueFor(t, other, domain.RoleCustomer)
	if _, err := guard.Authenticate(token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("foreign token err = %v, want ErrUnauthenticated", err)
	}
}

func TestRequireRoleSets(t *testing.T) {
	guard, _ := newTestGuard()
	ctx := context.Background()
	cust := &Principal{UserID: 1, Role: domain.RoleCustomer}
	mgr := &Principal{UserID: 2, Role: domain.RoleManager}

	if err := guard.Require(ctx, nil); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("nil principal err = %v, want ErrUnauthenticated", err)
	}

	// Empty set: authentication alone suffices.
	if err := guard.Require(ctx, cust); err != nil {
		t.Errorf("empty set rejected: %v", err)
	}

	if err := guard.Require(ctx, cust, domain.RoleAdmin, domain.RoleManager); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("customer in staff set err = %v, want ErrForbidden", err)
	}
	if err := guard.Require(ctx, mgr, domain.RoleAdmin, domain.RoleManager); err != nil {
		t.Errorf("manager in staff set rejected: %v", err)
	}
}

type denialRecorder struct {
	calls  int
	userID int64
	reason string
}

func (d *denialRecorder) LogDenied(ctx context.Context, userID int64, reason string) {
	d.calls++
	d.userID = userID
	d.reason = reason
}

func TestRequireRecordsDenials(t *testing.T) {
	tm := auth.NewTokenManager("secret", "storefront", "storefront-api", time.Hour)
	rec := &denialRecorder{}
	guard := NewGuard(tm, rec, nil)
	ctx := context.Background()
	cust := &Principal{UserID: 1, Role: domain.RoleCustomer}

	if err := guard.Require(ctx, cust, domain.RoleAdmin); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if rec.calls != 1 || rec.userID != 1 {
		t.Errorf("denial record = %+v, want one call for user 1", rec)
	}

	// Granted checks leave no denial record.
	if err := guard.Require(ctx, cust, domain.RoleCustomer); err != nil {
		t.Fatalf("require: %v", err)
	}
	if rec.calls != 1 {
		t.Errorf("calls = %d, want 1", rec.calls)
	}
}

func TestCheckCombinesBothSteps(t *testing.T) {
	guard, tm := newTestGuard()
	ctx := context.Background()
	token := issueFor(t, tm, domain.RoleCustomer)

	if _, err := guard.Check(ctx, token, domain.RoleCustomer); err != nil {
		t.Errorf("check: %v", err)
	}
	if _, err := guard.Check(ctx, token, domain.RoleAdmin); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
	if _, err := guard.Check(ctx, "garbage", domain.RoleAdmin); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}
