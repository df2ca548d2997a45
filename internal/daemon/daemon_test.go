package daemon

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/chatroom/internal/api"
	"github.com/matheus3301/chatroom/internal/bus"
	"github.com/matheus3301/chatroom/internal/config"
	"github.com/matheus3301/chatroom/internal/connectivity"
	"github.com/matheus3301/chatroom/internal/profile"
	"github.com/matheus3301/chatroom/internal/status"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// testHome points CHATROOM_HOME at a short temp dir (unix socket paths are
// length limited) and writes a config that needs no network.
func testHome(t *testing.T) {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "chatroom-d-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	t.Setenv("CHATROOM_HOME", dir)

	cfg := config.Default()
	cfg.Documents.Backend = "memory"
	cfg.Upload.CloudName = "demo"
	cfg.Identity.Endpoint = "http://127.0.0.1:1"
	cfg.Connectivity.Targets = []string{"127.0.0.1:1"}
	cfg.Connectivity.TimeoutMillis = 200
	if err := config.Save(profile.ConfigPath(), cfg); err != nil {
		t.Fatal(err)
	}
}

func TestFxModuleWiring(t *testing.T) {
	testHome(t)
	if err := fx.ValidateApp(Module(Params{ProfileName: "wiring"}), fx.NopLogger); err != nil {
		t.Fatalf("fx graph does not resolve: %v", err)
	}
}

func TestDaemonLifecycle(t *testing.T) {
	testHome(t)
	name := "life"

	app := fxtest.New(t, Module(Params{ProfileName: name}), fx.NopLogger)
	app.RequireStart()
	stopped := false
	defer func() {
		if !stopped {
			app.RequireStop()
		}
	}()

	client, err := api.Dial(profile.SocketPath(name), "en")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// No stored credentials and no identity token: bootstrap lands on Login.
	var st *api.StatusReply
	deadline := time.Now().Add(5 * time.Second)
	for {
		st, err = client.Status(ctx)
		if err == nil && st.Destination.Route == "LOGIN" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("status never reached LOGIN: %+v, %v", st, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if st.Profile != name || st.State != string(status.LoginRequired) {
		t.Errorf("Status() = %+v", st)
	}
	if st.Online {
		t.Error("online although no probe target is reachable")
	}

	_, err = client.SendText(ctx, "hello")
	if grpcstatus.Code(err) != codes.FailedPrecondition {
		t.Errorf("SendText while signed out: %v", err)
	}

	st, err = client.SetConnectivity(ctx, string(connectivity.ForceOnline))
	if err != nil {
		t.Fatalf("SetConnectivity: %v", err)
	}
	if !st.Online || st.Mode != "online" {
		t.Errorf("after override: %+v", st)
	}

	orphans, err := client.OrphanedUploads(ctx)
	if err != nil {
		t.Fatalf("OrphanedUploads: %v", err)
	}
	if len(orphans.Uploads) != 0 {
		t.Errorf("orphans = %+v", orphans.Uploads)
	}

	stopped = true
	app.RequireStop()

	if _, err := os.Stat(profile.SocketPath(name)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("socket left behind: %v", err)
	}
}

func TestSecondDaemonRefused(t *testing.T) {
	testHome(t)
	name := "dup"

	first := fxtest.New(t, Module(Params{ProfileName: name}), fx.NopLogger)
	first.RequireStart()
	defer first.RequireStop()

	second := fx.New(Module(Params{
		ProfileName: name,
		SocketPath:  filepath.Join(profile.Dir(name), "other.sock"),
	}), fx.NopLogger)
	if second.Err() == nil {
		t.Fatal("second daemon for the same profile started")
	}
}

func TestServerSocket(t *testing.T) {
	tmpDir, err := os.MkdirTemp("/tmp", "chatroom-srv-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	socketPath := filepath.Join(tmpDir, "d.sock")

	// A stale socket from a crashed daemon is replaced.
	stale, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatal(err)
	}
	stale.(*net.UnixListener).SetUnlinkOnClose(false)
	_ = stale.Close()

	svc := api.NewService("srv", nil, nil, nil, bus.New(), zap.NewNop())
	srv, err := NewServer(Params{ProfileName: "srv", SocketPath: socketPath}, zap.NewNop(), svc)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	info, err := os.Stat(socketPath)
	if err != nil {
		t.Fatalf("socket not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket perm = %o, want 600", perm)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	srv.Stop(ctx)
	if _, err := os.Stat(socketPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("socket not removed: %v", err)
	}
}
