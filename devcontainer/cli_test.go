package devcontainer

import (
	"context"
	"reflect"
	"testing"

	"github.com/banksean/dcx/runner"
)

type recordingRunner struct {
	name string
	args []string
	env  []string
	code int
}

func (r *recordingRunner) Capture(ctx context.Context, name string, args ...string) (*runner.Output, error) {
	return &runner.Output{}, nil
}

func (r *recordingRunner) Stream(ctx context.Context, env []string, name string, args ...string) (int, error) {
	r.name, r.args, r.env = name, args, env
	return r.code, nil
}

func (r *recordingRunner) LookPath(name string) (string, error) {
	return name, nil
}

func TestUpArgs(t *testing.T) {
	tests := map[string]struct {
		config string
		want   []string
	}{
		"no config":   {want: []string{"up", "--workspace-folder", "/r/dcx-a-a1b2c3d4"}},
		"with config": {config: "/r/dcx-a-a1b2c3d4/.devcontainer/alt.json", want: []string{"up", "--workspace-folder", "/r/dcx-a-a1b2c3d4", "--config", "/r/dcx-a-a1b2c3d4/.devcontainer/alt.json"}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := UpArgs("/r/dcx-a-a1b2c3d4", tt.config); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestExecArgs(t *testing.T) {
	got := ExecArgs("/m", "/c.json", []string{"ls", "-la"})
	want := []string{"exec", "--workspace-folder", "/m", "--config", "/c.json", "--", "ls", "-la"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	got = ExecArgs("/m", "", nil)
	want = []string{"exec", "--workspace-folder", "/m"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestCLIStreams(t *testing.T) {
	r := &recordingRunner{code: 3}
	c := NewCLI(r)
	ctx := context.Background()

	code, err := c.Up(ctx, "/m", "", []string{"DCX_NETWORK_MODE=open"})
	if err != nil || code != 3 {
		t.Errorf("Expected exit 3, got %d (err %v)", code, err)
	}
	if r.name != Binary || !reflect.DeepEqual(r.env, []string{"DCX_NETWORK_MODE=open"}) {
		t.Errorf("Expected devcontainer with network env, got %s %v", r.name, r.env)
	}

	if _, err := c.Forward(ctx, []string{"read-configuration", "--workspace-folder", "."}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r.args, []string{"read-configuration", "--workspace-folder", "."}) {
		t.Errorf("Expected args forwarded verbatim, got %v", r.args)
	}
}
