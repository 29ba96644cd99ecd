package page

import (
	"strings"

	"github.com/John-Robertt/cardfinder/internal/dom"
)

func testOpts() dom.Options { return dom.Options{} }

func join(s []string) string { return strings.Join(s, ",") }

func contains(s, sub string) bool { return strings.Contains(s, sub) }
