package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestVersionCmd(t *testing.T) {
	defer viper.Reset()

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	defer rootCmd.SetOut(nil)

	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"skillguard version", "Commit:", "Go Version:", "Platform:"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q:\n%s", want, out)
		}
	}
}
