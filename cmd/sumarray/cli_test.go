package main

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/paulstuart/sumarray/dispatch"
	"github.com/paulstuart/sumarray/internal/config"
	"github.com/paulstuart/sumarray/internal/vecio"
)

// execute runs the root command with a config path that does not exist, so
// defaults apply.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvKernel, "")
	t.Setenv(config.EnvLogLevel, "")
	t.Setenv(config.EnvWasm, "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSumCommand(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "1 2 3 4 5\n")
	b := writeFile(t, dir, "b.txt", "# header\n0.5, 0.25\n0.125\n")
	empty := writeFile(t, dir, "empty.txt", "")

	out, err := execute(t, "sum", a, b, empty)
	require.NoError(t, err)

	want := a + "\t15\t5\n" + b + "\t0.875\t3\n" + empty + "\t0\t0\n"
	require.Equal(t, want, out)
}

func TestSumCommandBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.f64")
	require.NoError(t, vecio.WriteBinary(path, []float64{1e308, -1e308, 1e308, -1e308, 2.5}))

	out, err := execute(t, "sum", path)
	require.NoError(t, err)
	require.Equal(t, path+"\t2.5\t5\n", out)
}

func TestSumCommandKernels(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.txt", "1 2 3 4 5 6 7")

	for _, name := range dispatch.Global.Names() {
		t.Run(name, func(t *testing.T) {
			out, err := execute(t, "sum", "--kernel", name, path)
			require.NoError(t, err)
			require.Equal(t, path+"\t28\t7\n", out)
		})
	}
}

func TestSumCommandErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", "1 2")
	bad := writeFile(t, dir, "bad.txt", "1 two 3")

	_, err := execute(t, "sum", "--kernel", "no-such-kernel", good)
	require.ErrorIs(t, err, dispatch.ErrUnknownKernel)

	_, err = execute(t, "sum", good, bad)
	require.Error(t, err)
	require.Contains(t, err.Error(), "two")

	_, err = execute(t, "sum", filepath.Join(dir, "missing.txt"))
	require.Error(t, err)

	_, err = execute(t, "sum", "--format", "csv", good)
	require.Error(t, err)
}

func TestSumStdinOnce(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.txt", "1 2")

	_, err := execute(t, "sum", "-", path, "-")
	require.ErrorIs(t, err, errStdinTwice)

	a := &app{logger: zap.NewNop()}
	_, err = a.sumFiles(context.Background(), []string{vecio.Stdin, vecio.Stdin}, sumOptions{format: "auto", jobs: 2})
	require.ErrorIs(t, err, errStdinTwice)
}

func TestSumFilesNoLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	var paths []string
	for i := range 16 {
		paths = append(paths, writeFile(t, dir, "f"+strings.Repeat("x", i)+".txt", "1 2 3 4 5"))
	}
	paths = append(paths, filepath.Join(dir, "missing.txt"))

	a := &app{logger: zap.NewNop()}
	_, err := a.sumFiles(context.Background(), paths, sumOptions{format: "auto", jobs: 3})
	require.Error(t, err)

	results, err := a.sumFiles(context.Background(), paths[:16], sumOptions{format: "auto", jobs: 3})
	require.NoError(t, err)
	require.Len(t, results, 16)
	for i, r := range results {
		require.Equal(t, paths[i], r.path)
		require.Equal(t, 15.0, r.sum)
		require.Equal(t, 5, r.count)
	}
}

func TestKernelsCommand(t *testing.T) {
	out, err := execute(t, "kernels")
	require.NoError(t, err)
	require.Contains(t, out, "arch=")
	require.Contains(t, out, "* "+dispatch.KernelUnrolled)
	require.Contains(t, out, "  "+dispatch.KernelNaive)
}

func TestBenchCommand(t *testing.T) {
	out, err := execute(t, "bench", "--iterations", "2", "--sizes", "0,7,1000", "--wasm", "builtin")
	require.NoError(t, err)

	require.Contains(t, out, "Size: 7 elements")
	require.Contains(t, out, "Size: 1000 elements")
	require.Contains(t, out, dispatch.KernelUnrolled)
	require.Contains(t, out, "wasm/builtin")
	require.NotContains(t, out, "MISMATCH")
}

func TestBenchCommandSkipsOverCapacity(t *testing.T) {
	out, err := execute(t, "bench", "--iterations", "1", "--sizes", "20000", "--wasm", "builtin")
	require.NoError(t, err)
	require.Contains(t, out, "skipped (capacity 16000)")
}

func TestBenchCommandErrors(t *testing.T) {
	_, err := execute(t, "bench", "--iterations", "1", "--sizes", "4", "--wasm", "nopath")
	require.Error(t, err)

	_, err = execute(t, "bench", "--iterations", "1", "--sizes", "4", "--wasm", "x="+filepath.Join(t.TempDir(), "missing.wasm"))
	require.Error(t, err)

	_, err = execute(t, "bench", "--iterations", "0")
	require.Error(t, err)
}

func TestWithinRoundoff(t *testing.T) {
	x := []float64{1, 2, 3}
	require.True(t, withinRoundoff(6, 6, x))
	require.True(t, withinRoundoff(math.NaN(), math.NaN(), x))
	require.False(t, withinRoundoff(6.5, 6, x))
	require.True(t, withinRoundoff(6+1e-15, 6, x))
}

func TestConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "sumarray.yaml")

	out, err := execute(t, "config", "--output", path)
	require.NoError(t, err)
	require.Equal(t, "wrote "+path+"\n", out)

	t.Setenv(config.EnvKernel, "")
	t.Setenv(config.EnvLogLevel, "")
	t.Setenv(config.EnvWasm, "")
	got, err := config.Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(config.DefaultConfig(), got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("written config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigCommandWritesOverrides(t *testing.T) {
	src := writeFile(t, t.TempDir(), "in.yaml", "kernel: naive\nbench:\n  sizes: [4, 8]\n")
	dst := filepath.Join(t.TempDir(), "out.yaml")
	t.Setenv(config.EnvKernel, "")
	t.Setenv(config.EnvLogLevel, "debug")
	t.Setenv(config.EnvWasm, "")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", src, "config", "-o", dst})
	require.NoError(t, cmd.Execute())

	t.Setenv(config.EnvLogLevel, "")
	got, err := config.Load(dst)
	require.NoError(t, err)
	require.Equal(t, "naive", got.Kernel)
	require.Equal(t, "debug", got.Log.Level)
	require.Equal(t, []int{4, 8}, got.Bench.Sizes)
}
