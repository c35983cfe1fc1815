package patch

import (
	"fmt"
	"strings"
)

func init() {
	register("vite-tailwind", viteTailwind)
	register("vite-proxy", viteProxy)
	register("css-tailwind", cssTailwind)
	register("angular-tailwind-css", angularTailwindCSS)
	register("angular-postcss", angularPostCSS)
}

var viteConfig = Target{
	Dir:   "client",
	Files: []string{"vite.config.ts", "vite.config.js", "vite.config.mts", "vite.config.mjs"},
}

func viteTailwind(Params) []Patch {
	return []Patch{
		edit{name: "vite: tailwind plugin", target: viteConfig, apply: pure(func(c string) string {
			c = insertImport(c, "import tailwindcss from '@tailwindcss/vite'")
			return insertAfter(c, "plugins: [", "tailwindcss(), ", "tailwindcss()")
		})},
	}
}

func viteProxy(p Params) []Patch {
	origin := p.BackendOrigin
	if origin == "" {
		origin = "http://localhost:5000"
	}
	block := fmt.Sprintf(`
  server: {
    proxy: {
      '/api': {
        target: '%s',
        changeOrigin: true,
      },
    },
  },`, origin)
	return []Patch{
		edit{name: "vite: api proxy", target: viteConfig, apply: pure(func(c string) string {
			return insertAfter(c, "defineConfig({", block, "proxy:")
		})},
	}
}

const tailwindImport = `@import "tailwindcss";`

func cssTailwind(Params) []Patch {
	target := Target{Dir: "client", Files: []string{"index.css", "style.css"}}
	return []Patch{
		edit{name: "css: tailwind import", target: target, apply: pure(func(c string) string {
			return prependLine(c, tailwindImport)
		})},
	}
}

func angularTailwindCSS(Params) []Patch {
	target := Target{Dir: "client", Files: []string{"styles.css"}}
	return []Patch{
		edit{name: "styles.css: tailwind import", target: target, apply: pure(func(c string) string {
			return prependLine(c, tailwindImport)
		})},
	}
}

const postcssPlugin = `"@tailwindcss/postcss"`

func angularPostCSS(Params) []Patch {
	target := Target{Dir: "client", Files: []string{".postcssrc.json"}, Create: true}
	return []Patch{
		edit{name: ".postcssrc.json", target: target, apply: func(c string) (string, error) {
			if strings.TrimSpace(c) == "" {
				return "{\n  \"plugins\": {\n    " + postcssPlugin + ": {}\n  }\n}\n", nil
			}
			if strings.Contains(c, postcssPlugin) {
				return c, nil
			}
			return mergeJSONKey(c, []string{"plugins", "@tailwindcss/postcss"}, map[string]any{})
		}},
	}
}
