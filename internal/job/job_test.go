package job

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/boxblur"
	"github.com/gogpu/boxblur/internal/imageio"
)

func writeTestImage(t *testing.T, path string) *image.RGBA {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 12, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 12; x++ {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	if err := imageio.Save(path, img, imageio.EncodeOptions{}); err != nil {
		t.Fatalf("writing test image: %v", err)
	}
	return img
}

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	engine := boxblur.NewEngine(boxblur.WithWorkers(2))
	t.Cleanup(engine.Close)
	return NewProcessor(engine, imageio.EncodeOptions{}, nil)
}

func TestNewJob(t *testing.T) {
	j := NewJob("/in/photo.png", "/out", "_blurred", 4, 0)

	if j.ID == "" {
		t.Error("ID is empty")
	}
	if j.Output != filepath.FromSlash("/out/photo_blurred.png") {
		t.Errorf("Output = %q", j.Output)
	}
	if j.Scale != 1 {
		t.Errorf("Scale = %v, want 1 for non-positive input", j.Scale)
	}
	if j.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}

	other := NewJob("/in/photo.png", "/out", "_blurred", 4, 1)
	if other.ID == j.ID {
		t.Error("two jobs share an ID")
	}
}

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name    string
		job     Job
		wantErr bool
	}{
		{"ok", Job{Input: "a.png", Output: "b.png", Radius: 3}, false},
		{"zero radius", Job{Input: "a.png", Output: "b.png"}, false},
		{"no input", Job{Output: "b.png"}, true},
		{"no output", Job{Input: "a.png"}, true},
		{"overwrite", Job{Input: "dir/a.png", Output: "dir/./a.png"}, true},
		{"negative radius", Job{Input: "a.png", Output: "b.png", Radius: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidJob) {
				t.Errorf("Validate() = %v, want ErrInvalidJob", err)
			}
		})
	}
}

func TestJobKernel(t *testing.T) {
	tests := []struct {
		radius, scale float64
		want          boxblur.KernelSize
	}{
		{0, 1, 1},
		{4, 1, 9},
		{2, 2, 9},
		{4, 0, 9},
	}
	for _, tt := range tests {
		j := Job{Radius: tt.radius, Scale: tt.scale}
		if got := j.Kernel(); got != tt.want {
			t.Errorf("Job{Radius: %v, Scale: %v}.Kernel() = %d, want %d", tt.radius, tt.scale, got, tt.want)
		}
	}
}

func TestJobJSON(t *testing.T) {
	j := NewJob("in.png", "out", "_b", 2.5, 2)
	data, err := json.Marshal(j)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "input", "output", "radius", "scale", "created_at"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("JSON is missing %q: %s", key, data)
		}
	}
}

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "checker.png")
	writeTestImage(t, input)

	j := NewJob(input, filepath.Join(dir, "out"), "_blurred", 2, 1)
	res, err := newTestProcessor(t).Process(context.Background(), j)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if res.JobID != j.ID || res.Output != j.Output {
		t.Errorf("Result = %+v, want job %s output %s", res, j.ID, j.Output)
	}
	if res.Width != 12 || res.Height != 8 {
		t.Errorf("Result size = %dx%d, want 12x8", res.Width, res.Height)
	}
	if res.Kernel != 5 {
		t.Errorf("Result.Kernel = %d, want 5", res.Kernel)
	}

	got, _, err := imageio.Load(j.Output)
	if err != nil {
		t.Fatalf("loading output: %v", err)
	}
	r, _, _, _ := got.At(6, 4).RGBA()
	if v := r >> 8; v < 100 || v > 155 {
		t.Errorf("center of blurred checkerboard = %d, want near 128", v)
	}
}

func TestProcessZeroRadiusCopies(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "checker.png")
	src := writeTestImage(t, input)

	j := NewJob(input, "", "_copy", 0, 1)
	res, err := newTestProcessor(t).Process(context.Background(), j)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.Kernel != 1 {
		t.Errorf("Result.Kernel = %d, want 1", res.Kernel)
	}

	got, _, err := imageio.Load(j.Output)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 12; x++ {
			gr, _, _, _ := got.At(x, y).RGBA()
			wr, _, _, _ := src.At(x, y).RGBA()
			if gr != wr {
				t.Fatalf("pixel (%d,%d) changed with zero radius", x, y)
			}
		}
	}
}

func TestProcessErrors(t *testing.T) {
	dir := t.TempDir()
	p := newTestProcessor(t)

	t.Run("missing input", func(t *testing.T) {
		j := NewJob(filepath.Join(dir, "missing.png"), dir, "_b", 2, 1)
		_, err := p.Process(context.Background(), j)
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Process() error = %v, want os.ErrNotExist", err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := p.Process(context.Background(), Job{Input: "a.png", Output: "a.png"})
		if !errors.Is(err, ErrInvalidJob) {
			t.Errorf("Process() error = %v, want ErrInvalidJob", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Process(ctx, NewJob("a.png", dir, "_b", 2, 1))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Process() error = %v, want context.Canceled", err)
		}
	})
}

func TestProcessAll(t *testing.T) {
	dir := t.TempDir()
	var jobs []Job
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		input := filepath.Join(dir, name)
		writeTestImage(t, input)
		jobs = append(jobs, NewJob(input, filepath.Join(dir, "out"), "_b", 1, 1))
	}

	results, err := newTestProcessor(t).ProcessAll(context.Background(), jobs, 2)
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	if len(results) != len(jobs) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(jobs))
	}
	for i, res := range results {
		if res.JobID != jobs[i].ID {
			t.Errorf("results[%d].JobID = %s, want %s", i, res.JobID, jobs[i].ID)
		}
		if _, err := os.Stat(res.Output); err != nil {
			t.Errorf("output %s: %v", res.Output, err)
		}
	}
}

func TestProcessAllStopsOnError(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	writeTestImage(t, good)

	jobs := []Job{
		NewJob(good, dir, "_b", 1, 1),
		NewJob(filepath.Join(dir, "missing.png"), dir, "_b", 1, 1),
	}
	if _, err := newTestProcessor(t).ProcessAll(context.Background(), jobs, 1); err == nil {
		t.Error("ProcessAll() = nil error, want failure for the missing input")
	}
}
