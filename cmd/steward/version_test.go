package main

import "testing"

func TestVersionCommandExists(t *testing.T) {
	if versionCmd == nil {
		t.Fatal("versionCmd is nil")
	}
	if versionCmd.Use != "version" {
		t.Errorf("versionCmd.Use = %q, want %q", versionCmd.Use, "version")
	}
	if versionCmd.Run == nil {
		t.Error("versionCmd.Run should not be nil")
	}
}

func TestRootCommandWiring(t *testing.T) {
	want := map[string]bool{
		"run":       false,
		"version":   false,
		"policy":    false,
		"proposals": false,
		"rollout":   false,
		"audit":     false,
		"settings":  false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered on root", name)
		}
	}
}
