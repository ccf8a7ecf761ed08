package inspect

import "testing"

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("BMAN_INSPECT_DARK_MODE", "1")
	dark := DetectTheme()
	if !dark.IsDark {
		t.Fatal("expected dark theme when BMAN_INSPECT_DARK_MODE=1")
	}

	t.Setenv("BMAN_INSPECT_DARK_MODE", "")
	light := DetectTheme()
	if light.IsDark {
		t.Fatal("expected light theme when BMAN_INSPECT_DARK_MODE is unset")
	}
}

func TestDetectTheme_ColorFGBGOverridesToDark(t *testing.T) {
	t.Setenv("BMAN_INSPECT_DARK_MODE", "")
	t.Setenv("COLORFGBG", "15;0")
	theme := DetectTheme()
	if !theme.IsDark {
		t.Fatal("expected dark theme for a low COLORFGBG background index")
	}
}

func TestDetectTheme_ColorFGBGLightBackground(t *testing.T) {
	t.Setenv("BMAN_INSPECT_DARK_MODE", "")
	t.Setenv("COLORFGBG", "0;15")
	theme := DetectTheme()
	if theme.IsDark {
		t.Fatal("expected light theme for a high COLORFGBG background index")
	}
}

func TestNewStyles_CarriesThemeThrough(t *testing.T) {
	theme := darkTheme()
	styles := NewStyles(theme)
	if styles.Theme.IsDark != theme.IsDark {
		t.Errorf("Styles.Theme.IsDark = %v, want %v", styles.Theme.IsDark, theme.IsDark)
	}
}
