// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"strings"
	"testing"
)

func TestIconRender(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconArrow, IconBullet} {
		rendered := icon.Render()
		if !strings.Contains(rendered, string(icon)) {
			t.Errorf("Icon(%q).Render() = %q, want it to contain the glyph", string(icon), rendered)
		}
	}
}

func TestStylesRenderContent(t *testing.T) {
	// Styles may add escape codes but must preserve the text.
	if got := Styles.Title.Render("hello"); !strings.Contains(got, "hello") {
		t.Errorf("Title.Render lost the content: %q", got)
	}
	if got := Styles.Error.Render("bad"); !strings.Contains(got, "bad") {
		t.Errorf("Error.Render lost the content: %q", got)
	}
}
