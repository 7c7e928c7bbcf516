package rules

import (
	"testing"
)

func TestCatalogue(t *testing.T) {
	cases := []struct {
		rule      string
		path      string
		content   string
		overrides map[string]Override
		want      int
	}{
		{rule: "a11y-img-alt", path: "app/p.tsx", content: `<img src="/a.png" />`, want: 1},
		{rule: "a11y-img-alt", path: "app/p.tsx", content: `<img src="/a.png" alt="" />`, want: 0},
		{rule: "a11y-img-alt", path: "app/p.tsx", content: `<Image src="/a.png" width={1} />`, want: 1},
		{rule: "a11y-html-lang", path: "index.html", content: `<!doctype html><html><body></body></html>`, want: 1},
		{rule: "a11y-html-lang", path: "index.html", content: `<!doctype html><html lang="en"><body></body></html>`, want: 0},
		{rule: "a11y-html-lang", path: "app/layout.tsx", content: `return <html><body>{children}</body></html>`, want: 1},
		{rule: "a11y-html-lang", path: "app/layout.tsx", content: `return <html lang="en"><body /></html>`, want: 0},
		{rule: "a11y-anchor-href", path: "a.tsx", content: `<a onClick={go}>x</a>`, want: 1},
		{rule: "a11y-anchor-href", path: "a.tsx", content: `<a href="https://example.com">x</a>`, want: 0},
		{rule: "a11y-button-type", path: "a.tsx", content: `<button>Go</button>`, want: 1},
		{rule: "a11y-button-type", path: "a.tsx", content: `<button type="button">Go</button>`, want: 0},
		{rule: "a11y-click-non-interactive", path: "a.tsx", content: `<div onClick={go}>x</div>`, want: 1},
		{rule: "a11y-click-non-interactive", path: "a.tsx", content: `<div role="button" onClick={go}>x</div>`, want: 0},
		{rule: "a11y-positive-tabindex", path: "a.tsx", content: `<div tabIndex={2} />`, want: 1},
		{rule: "a11y-positive-tabindex", path: "a.tsx", content: `<div tabIndex={-1} />`, want: 0},
		{rule: "a11y-icon-button-label", path: "a.tsx", content: `<Button size="icon"><X /></Button>`, want: 1},
		{rule: "a11y-icon-button-label", path: "a.tsx", content: `<Button size="icon" aria-label="Close"><X /></Button>`, want: 0},
		{rule: "a11y-autofocus", path: "a.tsx", content: `<input autoFocus />`, want: 1},
		{rule: "style-no-inline", path: "a.tsx", content: `<div style={{ color: "red" }} />`, want: 1},
		{rule: "style-no-important", path: "a.css", content: `.a { color: red !important; }`, want: 1},
		{rule: "style-hardcoded-color", path: "a.tsx", content: `<div className="bg-[#ff0000]" />`, want: 1},
		{rule: "style-classname-concat", path: "a.tsx", content: `<div className={"p-4 " + extra} />`, want: 1},
		{rule: "style-classname-template", path: "a.tsx", content: "<div className={`p-4 ${extra}`} />", want: 1},
		{rule: "style-arbitrary-px", path: "a.tsx", content: `<div className="w-[320px]" />`, want: 1},
		{rule: "style-dark-mode", path: "a.tsx", content: `<div className="bg-white p-4" />`, want: 1},
		{rule: "style-dark-mode", path: "a.tsx", content: `<div className="bg-white dark:bg-black" />`, want: 0},
		{rule: "component-ui-import-path", path: "app/p.tsx", content: `import { Button } from "../../components/ui/button";`, want: 1},
		{rule: "component-ui-import-path", path: "app/p.tsx", content: `import { Button } from "@/components/ui/button";`, want: 0},
		{rule: "component-radix-direct", path: "app/p.tsx", content: `import * as Dialog from "@radix-ui/react-dialog";`, want: 1},
		{rule: "component-radix-direct", path: "components/ui/dialog.tsx", content: `import * as Dialog from "@radix-ui/react-dialog";`, want: 0},
		{rule: "component-use-client-missing", path: "app/p.tsx", content: "import { useState } from \"react\";\nexport default function P() { const [a] = useState(0); return a }", want: 1},
		{rule: "component-use-client-missing", path: "app/p.tsx", content: "// page\n\"use client\";\nimport { useState } from \"react\";\nconst [a] = useState(0);", want: 0},
		{rule: "component-use-client-missing", path: "components/p.tsx", content: "const [a] = useState(0);", want: 0},
		{rule: "component-use-client-placement", path: "a.tsx", content: "import x from \"y\";\n\"use client\";\n", want: 1},
		{rule: "component-use-client-placement", path: "a.tsx", content: "\"use client\";\nimport x from \"y\";\n", want: 0},
		{rule: "component-anonymous-default-export", path: "a.tsx", content: `export default function () { return null }`, want: 1},
		{rule: "component-anonymous-default-export", path: "a.tsx", content: `export default () => null`, want: 1},
		{rule: "component-anonymous-default-export", path: "a.tsx", content: `export default function Page() { return null }`, want: 0},
		{rule: "component-index-key", path: "a.tsx", content: `items.map((it, index) => <li key={index}>{it}</li>)`, want: 1},
		{rule: "component-forwardref-displayname", path: "a.tsx", content: `const B = React.forwardRef((p, ref) => <b ref={ref} />);`, want: 1},
		{rule: "component-forwardref-displayname", path: "a.tsx", content: "const B = React.forwardRef((p, ref) => <b ref={ref} />);\nB.displayName = \"B\";", want: 0},
		{rule: "next-no-img-element", path: "a.tsx", content: `<img src="/a.png" alt="" />`, want: 1},
		{rule: "next-no-html-link", path: "a.tsx", content: `<a href="/about">About</a>`, want: 1},
		{rule: "next-no-html-link", path: "a.tsx", content: `<a href="https://example.com">x</a>`, want: 0},
		{rule: "next-no-head-element", path: "app/layout.tsx", content: `<head><title>x</title></head>`, want: 1},
		{rule: "next-no-head-element", path: "pages/_document.tsx", content: `<head><title>x</title></head>`, want: 0},
		{rule: "next-router-in-app", path: "app/p.tsx", content: `import { useRouter } from "next/router";`, want: 1},
		{rule: "next-router-in-app", path: "pages/p.tsx", content: `import { useRouter } from "next/router";`, want: 0},
		{rule: "next-sync-script", path: "index.html", content: `<script src="/a.js"></script>`, want: 1},
		{rule: "next-sync-script", path: "index.html", content: `<script defer src="/a.js"></script>`, want: 0},
		{rule: "next-layout-metadata", path: "app/layout.tsx", content: `export default function RootLayout() {}`, want: 1},
		{rule: "next-layout-metadata", path: "app/layout.tsx", content: "export const metadata = {};\nexport default function RootLayout() {}", want: 0},
		{rule: "next-layout-metadata", path: "app/blog/layout.tsx", content: `export default function BlogLayout() {}`, want: 0},
		{rule: "next-package-json", path: "package.json", content: `{"dependencies":{"next":"14","react":"18","react-dom":"18"},"scripts":{"build":"next build"}}`, want: 0},
		{rule: "next-package-json", path: "package.json", content: `{}`, want: 4},
		{rule: "next-package-json", path: "package.json", content: `{`, want: 1},
		{rule: "perf-no-console", path: "a.ts", content: `console.log("x");`, want: 1},
		{rule: "perf-no-console", path: "a.ts", content: `console.error("x");`, want: 0},
		{rule: "perf-namespace-import", path: "a.tsx", content: `import * as Icons from "lucide-react";`, want: 1},
		{rule: "perf-lodash-full", path: "a.ts", content: `import _ from "lodash";`, want: 1},
		{rule: "perf-lodash-full", path: "a.ts", content: `import debounce from "lodash/debounce";`, want: 0},
		{rule: "perf-moment", path: "a.ts", content: `import moment from "moment";`, want: 1},
		{rule: "perf-effect-deps", path: "a.tsx", content: `useEffect(() => { run(); });`, want: 1},
		{rule: "perf-effect-deps", path: "a.tsx", content: `useEffect(() => { run(); }, []);`, want: 0},
		{rule: "perf-effect-deps", path: "a.tsx", content: `useEffect(() => { run(a, b); }, [a, b]);`, want: 0},
		{rule: "ts-no-explicit-any", path: "a.ts", content: "function f(a: any) {}\nconst x = y as any;", want: 2},
		{rule: "ts-no-explicit-any", path: "a.js", content: `const x = y as any;`, want: 0},
		{rule: "ts-no-ts-ignore", path: "a.ts", content: `// @ts-ignore`, want: 1},
		{rule: "ts-non-null-assertion", path: "a.ts", content: `const n = el!.value;`, want: 1},
		{rule: "security-dangerous-html", path: "a.tsx", content: `<div dangerouslySetInnerHTML={{ __html: x }} />`, want: 1},
		{rule: "security-no-eval", path: "a.ts", content: "eval(\"1+1\");\nconst f = new Function(\"return 1\");", want: 2},
		{rule: "security-hardcoded-secret", path: "a.ts", content: `const apiKey = "sk_live_1234567890";`, want: 1},
		{rule: "security-hardcoded-secret", path: "a.ts", content: `const apiKey = process.env.API_KEY;`, want: 0},
		{rule: "security-target-blank", path: "a.tsx", content: `<a href="https://x.com" target="_blank">x</a>`, want: 1},
		{rule: "security-target-blank", path: "a.tsx", content: `<a href="https://x.com" target="_blank" rel="noopener noreferrer">x</a>`, want: 0},
		{rule: "security-client-env", path: "app/p.tsx", content: "\"use client\";\nconst k = process.env.SECRET_KEY;\nconst p = process.env.NEXT_PUBLIC_URL;", want: 1},
		{rule: "security-client-env", path: "app/p.tsx", content: "const k = process.env.SECRET_KEY;", want: 0},
		{rule: "maint-todo", path: "a.ts", content: `// TODO: fix`, want: 1},
		{
			rule:      "maint-complexity",
			path:      "a.ts",
			content:   "function f(a, b) {\n  if (a) {}\n  if (b) {}\n  if (a && b) {}\n}\n",
			overrides: map[string]Override{"maint-complexity": {Options: map[string]interface{}{"max": 2}}},
			want:      1,
		},
		{rule: "maint-complexity", path: "a.ts", content: "function f(a) {\n  if (a) {}\n}\n", want: 0},
		{rule: "maint-duplicate-import", path: "a.ts", content: "import { a } from \"x\";\nimport { b } from \"x\";\nimport type { C } from \"x\";", want: 1},
	}

	for _, c := range cases {
		issues, errs := EvaluateAll(Builtin(), c.path, c.content, c.overrides)
		if len(errs) != 0 {
			t.Fatalf("%s on %s: unexpected errors %v", c.rule, c.path, errs)
		}
		got := filterRule(issues, c.rule)
		if len(got) != c.want {
			t.Fatalf("%s on %s %q: got %d issues, want %d: %+v", c.rule, c.path, c.content, len(got), c.want, got)
		}
	}
}

func TestComplexityMessageNamesFunction(t *testing.T) {
	content := "const handle = (a) => {\n  if (a) {}\n  while (a) {}\n}\n"
	overrides := map[string]Override{"maint-complexity": {Options: map[string]interface{}{"max": 1}}}
	issues, _ := EvaluateAll(Builtin(), "a.ts", content, overrides)
	got := filterRule(issues, "maint-complexity")
	if len(got) != 1 || got[0].Message != "handle has complexity 3 (max 1)" {
		t.Fatalf("unexpected issues: %+v", got)
	}
}

func TestDirective(t *testing.T) {
	cases := map[string]string{
		"\"use client\";\nimport a from 'a'": "use client",
		"'use server'\n":                     "use server",
		"/* header\n */\n\"use client\"":     "use client",
		"// x\nimport a from 'a'":            "",
		"":                                   "",
	}
	for in, want := range cases {
		if got := Directive(in); got != want {
			t.Fatalf("Directive(%q) = %q, want %q", in, got, want)
		}
	}
}
