package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type mockHTTPServer struct {
	listenErr     error
	shutdownCount atomic.Int32
	started       chan struct{}
	stopCh        chan struct{}
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{
		started: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
}

func (m *mockHTTPServer) ListenAndServe() error {
	select {
	case m.started <- struct{}{}:
	default:
	}
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(ctx context.Context) error {
	m.shutdownCount.Add(1)
	close(m.stopCh)
	return nil
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	server := newMockHTTPServer()
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	select {
	case <-server.started:
	case <-time.After(2 * time.Second):
		t.Fatal("Server did not start")
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if server.shutdownCount.Load() != 1 {
		t.Errorf("Expected 1 shutdown call, got %d", server.shutdownCount.Load())
	}
}

func TestHTTPServerService_ListenError(t *testing.T) {
	server := newMockHTTPServer()
	server.listenErr = errors.New("address in use")
	svc := NewHTTPServerService(server, 0)

	err := svc.Serve(context.Background())
	if !errors.Is(err, server.listenErr) {
		t.Errorf("Expected listen error, got %v", err)
	}
	if svc.String() != "http-server" {
		t.Errorf("Expected name http-server, got %s", svc.String())
	}
}

type fakeSweeper struct {
	sweeps atomic.Int32
	err    error
}

func (f *fakeSweeper) Sweep(context.Context) (int, error) {
	f.sweeps.Add(1)
	return 2, f.err
}

func (f *fakeSweeper) Count(context.Context) (int, error) {
	return 0, nil
}

func TestJanitorService_Sweeps(t *testing.T) {
	store := &fakeSweeper{}
	svc := NewJanitorService(store, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if store.sweeps.Load() < 2 {
		t.Errorf("Expected at least 2 sweeps, got %d", store.sweeps.Load())
	}
}

func TestJanitorService_SweepErrorKeepsRunning(t *testing.T) {
	store := &fakeSweeper{err: errors.New("redis down")}
	svc := NewJanitorService(store, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	svc.Serve(ctx)
	if store.sweeps.Load() < 2 {
		t.Errorf("Expected janitor to keep sweeping after errors, got %d sweeps", store.sweeps.Load())
	}
}

func TestTree_RunsServices(t *testing.T) {
	tree := NewTree(TreeConfig{ShutdownTimeout: time.Second})
	server := newMockHTTPServer()
	store := &fakeSweeper{}

	tree.AddAPIService(NewHTTPServerService(server, time.Second))
	tree.AddMaintenanceService(NewJanitorService(store, 10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	select {
	case <-server.started:
	case <-time.After(2 * time.Second):
		t.Fatal("HTTP service was not started by the tree")
	}
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("Tree did not stop after cancel")
	}

	if store.sweeps.Load() == 0 {
		t.Error("Expected janitor to run under the tree")
	}
	if server.shutdownCount.Load() != 1 {
		t.Errorf("Expected server shutdown once, got %d", server.shutdownCount.Load())
	}
}
