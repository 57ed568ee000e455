package plugin

import (
	"errors"
	"testing"

	"firestige.xyz/eapsniffer/internal/core"
)

func resetAll() {
	capturerReg.Reset()
	injectorReg.Reset()
	reporterReg.Reset()
}

func TestRegisterAndGet(t *testing.T) {
	resetAll()

	RegisterCapturer("test_cap", func() Capturer {
		return &mockCapturer{mockPlugin: mockPlugin{name: "test_cap"}}
	})
	RegisterInjector("test_inj", func() Injector {
		return &mockInjector{mockPlugin: mockPlugin{name: "test_inj"}}
	})
	RegisterReporter("test_rep", func() Reporter {
		return &mockReporter{mockPlugin: mockPlugin{name: "test_rep"}}
	})

	capFactory, err := GetCapturerFactory("test_cap")
	if err != nil {
		t.Fatalf("GetCapturerFactory failed: %v", err)
	}
	if capFactory().Name() != "test_cap" {
		t.Error("capturer name mismatch")
	}

	injFactory, err := GetInjectorFactory("test_inj")
	if err != nil {
		t.Fatalf("GetInjectorFactory failed: %v", err)
	}
	if injFactory().Name() != "test_inj" {
		t.Error("injector name mismatch")
	}

	repFactory, err := GetReporterFactory("test_rep")
	if err != nil {
		t.Fatalf("GetReporterFactory failed: %v", err)
	}
	if repFactory().Name() != "test_rep" {
		t.Error("reporter name mismatch")
	}
}

func TestGetNotFoundReturnsError(t *testing.T) {
	resetAll()

	if _, err := GetCapturerFactory("nonexistent"); !errors.Is(err, core.ErrPluginNotFound) {
		t.Errorf("Expected ErrPluginNotFound, got %v", err)
	}
	if _, err := GetInjectorFactory("nonexistent"); !errors.Is(err, core.ErrPluginNotFound) {
		t.Errorf("Expected ErrPluginNotFound, got %v", err)
	}
	if _, err := GetReporterFactory("nonexistent"); !errors.Is(err, core.ErrPluginNotFound) {
		t.Errorf("Expected ErrPluginNotFound, got %v", err)
	}
}

func TestRegisterPanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"duplicate", func() {
			f := func() Capturer { return &mockCapturer{} }
			RegisterCapturer("dup", f)
			RegisterCapturer("dup", f)
		}},
		{"empty name", func() {
			RegisterReporter("", func() Reporter { return &mockReporter{} })
		}},
		{"nil factory", func() {
			RegisterInjector("nil", nil)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetAll()
			defer func() {
				if r := recover(); r == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn()
		})
	}
}

func TestList(t *testing.T) {
	resetAll()

	RegisterReporter("rep_c", func() Reporter { return &mockReporter{} })
	RegisterReporter("rep_a", func() Reporter { return &mockReporter{} })
	RegisterReporter("rep_b", func() Reporter { return &mockReporter{} })

	list := ListReporters()
	if len(list) != 3 || list[0] != "rep_a" || list[1] != "rep_b" || list[2] != "rep_c" {
		t.Errorf("Expected sorted [rep_a rep_b rep_c], got %v", list)
	}
	if len(ListCapturers()) != 0 || len(ListInjectors()) != 0 {
		t.Error("expected empty capturer and injector lists")
	}
}

func TestTypeSeparation(t *testing.T) {
	resetAll()

	name := "common_name"
	RegisterCapturer(name, func() Capturer { return &mockCapturer{mockPlugin: mockPlugin{name: "cap"}} })
	RegisterReporter(name, func() Reporter { return &mockReporter{mockPlugin: mockPlugin{name: "rep"}} })

	capFactory, err := GetCapturerFactory(name)
	if err != nil || capFactory().Name() != "cap" {
		t.Errorf("capturer lookup failed: %v", err)
	}
	repFactory, err := GetReporterFactory(name)
	if err != nil || repFactory().Name() != "rep" {
		t.Errorf("reporter lookup failed: %v", err)
	}
}
