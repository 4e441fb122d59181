// Package internal contains integration tests that run a scripted engine
// through the session controller, observer and console together.
package internal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/unixpickle/model3d/model3d"

	"github.com/Iron-Ham/photogram/internal/asset"
	"github.com/Iron-Ham/photogram/internal/console"
	"github.com/Iron-Ham/photogram/internal/engine/replay"
	"github.com/Iron-Ham/photogram/internal/event"
	"github.com/Iron-Ham/photogram/internal/observer"
	"github.com/Iron-Ham/photogram/internal/recon"
	"github.com/Iron-Ham/photogram/internal/session"
	"github.com/Iron-Ham/photogram/internal/testutil"
)

func TestReplayPipelineIntegration(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "fixture.stl")
	mesh := model3d.NewMeshTriangles([]*model3d.Triangle{
		{model3d.XYZ(0, 0, 0), model3d.XYZ(2, 0, 0), model3d.XYZ(0, 2, 0)},
		{model3d.XYZ(0, 0, 0), model3d.XYZ(0, 2, 0), model3d.XYZ(0, 0, 2)},
	})
	if err := mesh.SaveGroupedSTL(model); err != nil {
		t.Fatal(err)
	}

	script, err := replay.Parse([]byte(`
events:
  - event: inputComplete
  - event: skippedSample
    id: 3
  - event: requestProgress
    fraction: 0.4
  - event: requestProgressInfo
    stage: meshing
    remainingSeconds: 12
  - event: requestError
    error: texture atlas overflow
  - event: requestProgress
    fraction: 1
  - event: requestComplete
  - event: processingComplete
`))
	if err != nil {
		t.Fatal(err)
	}
	script.Model = model
	eng := replay.New(script)

	logger, logs := testutil.CaptureLogger(t)
	ctrl, err := session.NewController(eng, "*.jpg", logger)
	if err != nil {
		t.Fatal(err)
	}

	input := testutil.WriteImages(t, "a.jpg", "b.jpg", "c.jpg")
	output := filepath.Join(dir, "scan.stl")
	aux := filepath.Join(dir, "scan.ply")

	h, err := ctrl.Create(context.Background(), input, recon.DefaultConfiguration(), session.WithOutputLock(output))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Simulate the console and a second subscriber sharing the bus
	bus := event.NewBus()
	var stdout bytes.Buffer
	con := console.New(console.Options{Out: &stdout, Mode: console.ModeAlways})
	con.Attach(bus)

	var mu sync.Mutex
	var seen []string
	bus.Subscribe(event.SessionType(recon.EventRequestProgress), func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.EventType())
	})

	obs := observer.New(observer.Options{
		SessionID: h.ID,
		Output:    output,
		Export: observer.ExportOptions{
			Enabled:     true,
			Destination: aux,
			Loader:      asset.NewMeshLoader(),
		},
		Bus:    bus,
		Logger: h.Logger,
	})

	req := recon.NewModelFileRequest(output, nil)
	if err := ctrl.Submit(context.Background(), h, []recon.Request{req}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	obs.Start(context.Background(), h)
	out := obs.Wait()
	con.Detach(bus)

	if err := ctrl.Release(h); err != nil {
		t.Errorf("Release() error = %v", err)
	}

	if out.Code != 0 || out.Reason != observer.ReasonCompleted {
		t.Errorf("outcome = %+v", out)
	}
	if out.Events != 8 {
		t.Errorf("Events = %d, want 8", out.Events)
	}
	if out.RequestErrors != 1 {
		t.Errorf("RequestErrors = %d, want 1", out.RequestErrors)
	}
	if out.ExportErr != nil {
		t.Errorf("ExportErr = %v", out.ExportErr)
	}

	if _, err := os.Stat(output); err != nil {
		t.Errorf("model not written: %v", err)
	}
	if _, err := os.Stat(aux); err != nil {
		t.Errorf("auxiliary export not written: %v", err)
	}
	if _, err := os.Stat(session.LockPath(output)); !os.IsNotExist(err) {
		t.Errorf("lock not released: %v", err)
	}

	mu.Lock()
	if len(seen) != 2 {
		t.Errorf("progress subscriber saw %d events, want 2", len(seen))
	}
	mu.Unlock()

	text := stdout.String()
	for _, want := range []string{"skipped sample 3", "progress 40.0%", "stage meshing", "texture atlas overflow", "processing complete", "exported " + aux} {
		if !strings.Contains(text, want) {
			t.Errorf("console missing %q:\n%s", want, text)
		}
	}
	if strings.Index(text, "progress 40.0%") > strings.Index(text, "progress 100.0%") {
		t.Errorf("console lines out of order:\n%s", text)
	}

	if !strings.Contains(logs.String(), "images=3") {
		t.Errorf("log should count the input images:\n%s", logs.String())
	}
}

func TestUnsupportedHostIntegration(t *testing.T) {
	supported := false
	eng := replay.New(&replay.Script{Supported: &supported, Unsupported: replay.UnsupportedPlatform})

	ctrl, err := session.NewController(eng, "*.jpg", nil)
	if err != nil {
		t.Fatal(err)
	}

	output := filepath.Join(t.TempDir(), "scan.stl")
	_, err = ctrl.Create(context.Background(), t.TempDir(), recon.DefaultConfiguration(), session.WithOutputLock(output))
	if err == nil {
		t.Fatal("Create() should fail on an unsupported host")
	}
	if _, statErr := os.Stat(session.LockPath(output)); !os.IsNotExist(statErr) {
		t.Error("no lock should be taken when the host is unsupported")
	}
}
