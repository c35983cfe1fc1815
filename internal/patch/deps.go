package patch

import (
	"path"

	"celtrix/internal/config"
)

// npmRequirements lists the npm packages the code written by a modification
// imports or runs. Stacks must declare every one of them in an install step.
var npmRequirements = map[string]struct{ all, typescript []string }{
	"express-entry":        {all: []string{"express", "mongoose", "cors", "dotenv"}, typescript: []string{"tsx"}},
	"hono-entry":           {all: []string{"hono", "@hono/node-server"}, typescript: []string{"tsx"}},
	"react-api-service":    {all: []string{"axios"}},
	"firebase-config":      {all: []string{"firebase"}},
	"vite-tailwind":        {all: []string{"tailwindcss", "@tailwindcss/vite"}},
	"css-tailwind":         {all: []string{"tailwindcss"}},
	"angular-tailwind-css": {all: []string{"tailwindcss"}},
	"angular-postcss":      {all: []string{"postcss", "@tailwindcss/postcss"}},
}

// Requires returns the npm packages modification name depends on for lang.
func Requires(name string, lang config.Language) []string {
	r := npmRequirements[name]
	out := append([]string(nil), r.all...)
	if lang == config.TypeScript {
		out = append(out, r.typescript...)
	}
	return out
}

// DeclaredVersion is the range recorded for dependencies that are declared
// but not installed. The package manager resolves it on the next install.
const DeclaredVersion = "latest"

// Dependencies returns a patch that lists packages in dir/package.json
// without installing them, under devDependencies when dev is set.
func Dependencies(dir string, packages []string, dev bool) Patch {
	key := "dependencies"
	if dev {
		key = "devDependencies"
	}
	members := make([]script, len(packages))
	for i, p := range packages {
		members[i] = script{name: p, command: DeclaredVersion}
	}
	return edit{
		name:   path.Join(dir, "package.json") + ": " + key,
		target: Target{Dir: dir, Files: []string{"package.json"}},
		apply: pure(func(c string) string {
			return addEntries(c, key, members)
		}),
	}
}
