package authstate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"famletter/internal/probe"
)

type fakeProber struct {
	verify      func(ctx context.Context) probe.Result
	currentUser func(ctx context.Context) (*probe.User, probe.Result)
	logout      func(ctx context.Context) error
}

func (f *fakeProber) Verify(ctx context.Context) probe.Result {
	if f.verify != nil {
		return f.verify(ctx)
	}
	return probe.Result{Outcome: probe.OutcomeInvalid}
}

func (f *fakeProber) CurrentUser(ctx context.Context) (*probe.User, probe.Result) {
	if f.currentUser != nil {
		return f.currentUser(ctx)
	}
	return nil, probe.Result{Outcome: probe.OutcomeInvalid}
}

func (f *fakeProber) Logout(ctx context.Context) error {
	if f.logout != nil {
		return f.logout(ctx)
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitialStateIsLoading(t *testing.T) {
	holder := New(&fakeProber{}, discardLogger())

	snap := holder.Snapshot()
	if !snap.Loading || snap.Authenticated || snap.User != nil {
		t.Fatalf("initial snapshot = %+v, want loading unauthenticated", snap)
	}
}

func TestBootstrapSettlesAuthenticated(t *testing.T) {
	user := &probe.User{ID: "u-1", Name: "Kim"}
	prober := &fakeProber{
		verify: func(context.Context) probe.Result {
			return probe.Result{Outcome: probe.OutcomeValid}
		},
		currentUser: func(context.Context) (*probe.User, probe.Result) {
			return user, probe.Result{Outcome: probe.OutcomeValid}
		},
	}
	holder := New(prober, discardLogger())

	snap := holder.Bootstrap(context.Background())

	if !snap.Authenticated || snap.Loading || snap.User != user {
		t.Fatalf("snapshot = %+v, want authenticated with user", snap)
	}
}

func TestBootstrapCollapsesFailuresToUnauthenticated(t *testing.T) {
	outcomes := []probe.Result{
		{Outcome: probe.OutcomeInvalid, StatusCode: 401},
		{Outcome: probe.OutcomeNetworkError, Err: errors.New("dial: refused")},
	}

	for _, result := range outcomes {
		prober := &fakeProber{
			verify: func(context.Context) probe.Result { return result },
		}
		holder := New(prober, discardLogger())

		snap := holder.Bootstrap(context.Background())

		if snap.Authenticated || snap.Loading || snap.User != nil {
			t.Fatalf("outcome %s: snapshot = %+v, want settled unauthenticated", result.Outcome, snap)
		}
	}
}

func TestUserFetchNeverPrecedesSuccessfulVerify(t *testing.T) {
	userFetched := false
	prober := &fakeProber{
		verify: func(context.Context) probe.Result {
			return probe.Result{Outcome: probe.OutcomeInvalid}
		},
		currentUser: func(context.Context) (*probe.User, probe.Result) {
			userFetched = true
			return nil, probe.Result{Outcome: probe.OutcomeInvalid}
		},
	}
	holder := New(prober, discardLogger())

	holder.Bootstrap(context.Background())

	if userFetched {
		t.Fatal("CurrentUser was called although Verify did not succeed")
	}
}

func TestStaleProbeCannotOverwriteNewerResult(t *testing.T) {
	user := &probe.User{ID: "u-1", Name: "Kim"}
	release := make(chan struct{})
	started := make(chan struct{})

	slowProber := &fakeProber{
		verify: func(context.Context) probe.Result {
			close(started)
			<-release
			return probe.Result{Outcome: probe.OutcomeValid}
		},
		currentUser: func(context.Context) (*probe.User, probe.Result) {
			return user, probe.Result{Outcome: probe.OutcomeValid}
		},
	}
	holder := New(slowProber, discardLogger())

	done := make(chan Snapshot)
	go func() {
		done <- holder.RefreshAuth(context.Background())
	}()
	<-started

	// A logout lands while the probe is still in flight.
	holder.Logout(context.Background())
	close(release)
	<-done

	snap := holder.Snapshot()
	if snap.Authenticated || snap.User != nil {
		t.Fatalf("stale probe overwrote logout: %+v", snap)
	}
}

func TestLogoutResetsStateEvenWhenServerCallFails(t *testing.T) {
	prober := &fakeProber{
		verify: func(context.Context) probe.Result {
			return probe.Result{Outcome: probe.OutcomeValid}
		},
		currentUser: func(context.Context) (*probe.User, probe.Result) {
			return &probe.User{ID: "u-1"}, probe.Result{Outcome: probe.OutcomeValid}
		},
		logout: func(context.Context) error {
			return errors.New("backend unreachable")
		},
	}
	holder := New(prober, discardLogger())
	holder.Bootstrap(context.Background())

	snap := holder.Logout(context.Background())

	if snap.Authenticated || snap.User != nil {
		t.Fatalf("snapshot after logout = %+v, want unauthenticated", snap)
	}
}
