package game

import (
	"testing"

	"github.com/quasilyte/gdata/v2"
)

func openTestGData(t *testing.T) *gdata.Manager {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_DATA_HOME", tempDir)

	manager, err := gdata.Open(gdata.Config{AppName: "sparkfx_settings_test"})
	if err != nil {
		t.Skipf("gdata not available: %v", err)
	}
	return manager
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.LastEffect != "" || s.PixelsPerUnit != 0 || !s.ShowHUD {
		t.Errorf("DefaultSettings() = %+v", s)
	}
}

// TestSettingsManager_NilManager 测试降级模式：仅内存设置，保存不报错
func TestSettingsManager_NilManager(t *testing.T) {
	sm := NewSettingsManager(nil, nil)
	sm.SetLastEffect("sparks")
	if err := sm.Save(); err != nil {
		t.Errorf("Save() error = %v", err)
	}
	if sm.GetSettings().LastEffect != "sparks" {
		t.Errorf("LastEffect = %q", sm.GetSettings().LastEffect)
	}
}

func TestSettingsManager_SaveAndReload(t *testing.T) {
	manager := openTestGData(t)

	sm := NewSettingsManager(manager, nil)
	sm.SetLastEffect("vortex")
	sm.SetPixelsPerUnit(200)
	sm.ToggleHUD()
	if err := sm.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded := NewSettingsManager(manager, nil)
	got := reloaded.GetSettings()
	if got.LastEffect != "vortex" || got.PixelsPerUnit != 200 || got.ShowHUD {
		t.Errorf("reloaded settings = %+v", got)
	}
}

func TestSettingsManager_CorruptDataFallsBack(t *testing.T) {
	manager := openTestGData(t)
	if err := manager.SaveObjectProp(settingsObject, settingsProperty, []byte("showHUD: [")); err != nil {
		t.Fatal(err)
	}

	sm := NewSettingsManager(manager, nil)
	if *sm.GetSettings() != *DefaultSettings() {
		t.Errorf("settings = %+v, want defaults", sm.GetSettings())
	}
}

func TestSetPixelsPerUnit_ClampsNegative(t *testing.T) {
	sm := NewSettingsManager(nil, nil)
	sm.SetPixelsPerUnit(-5)
	if sm.GetSettings().PixelsPerUnit != 0 {
		t.Errorf("PixelsPerUnit = %v, want 0", sm.GetSettings().PixelsPerUnit)
	}
}
