// Package prompt renders the per-phase agent prompts. Defaults are
// embedded; a repository can override any of them with
// .wreckit/prompts/<phase>.md.
package prompt

import "embed"

//go:embed templates/*.md
var embeddedFS embed.FS
