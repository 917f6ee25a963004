package render

import (
	"strings"
	"sync"
	"testing"

	"github.com/diogo/llmchat/internal/config"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Width != 80 {
		t.Errorf("expected Width=80, got %d", opts.Width)
	}
	if opts.Style != StyleDark {
		t.Errorf("expected Style='dark', got %s", opts.Style)
	}
	if !opts.EnableEmoji || !opts.PreserveNewLines || !opts.TableWrap {
		t.Errorf("unexpected defaults: %+v", opts)
	}
	if opts.InlineTableLinks {
		t.Error("expected InlineTableLinks=false")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	t.Setenv("GLAMOUR_STYLE", "")

	md := config.MarkdownConfig{Style: StyleLight, TableWrap: false, InlineTableLinks: true}
	opts := OptionsFromConfig(md, 100)

	if opts.Style != StyleLight {
		t.Errorf("expected Style='light', got %s", opts.Style)
	}
	if opts.Width != 100 {
		t.Errorf("expected Width=100, got %d", opts.Width)
	}
	if opts.TableWrap || !opts.InlineTableLinks || opts.EnableEmoji {
		t.Errorf("config booleans not applied: %+v", opts)
	}

	// zero width keeps the default
	if got := OptionsFromConfig(md, 0).Width; got != 80 {
		t.Errorf("expected Width=80, got %d", got)
	}
}

func TestOptionsFromConfig_EnvOverride(t *testing.T) {
	t.Setenv("GLAMOUR_STYLE", StyleNoTTY)

	opts := OptionsFromConfig(config.DefaultMarkdownConfig(), 60)
	if opts.Style != StyleNoTTY {
		t.Errorf("expected env style to win, got %s", opts.Style)
	}
}

func TestMarkdown(t *testing.T) {
	out, err := Markdown("# Title\n\nSome **bold** text", DefaultOptions().WithStyle(StyleNoTTY))
	if err != nil {
		t.Fatalf("Markdown failed: %v", err)
	}
	if !strings.Contains(out, "Title") || !strings.Contains(out, "bold") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestMarkdown_InvalidStyle(t *testing.T) {
	ClearCache()
	_, err := Markdown("text", DefaultOptions().WithStyle("invalid_style_path"))
	if err == nil {
		t.Error("expected error for invalid style")
	}
}

func TestMessage(t *testing.T) {
	opts := DefaultOptions().WithStyle(StyleNoTTY)
	body := "<think>step one</think>The answer\n<image-uuid>0b9a4a3e-0d2f-4c1e-9d7a-3f1b2c4d5e6f</image-uuid>"

	out := Message(body, true, opts)
	if strings.Contains(out, "step one") {
		t.Errorf("reasoning should be hidden: %q", out)
	}
	if !strings.Contains(out, "The answer") || !strings.Contains(out, "[image]") {
		t.Errorf("unexpected output: %q", out)
	}
	if strings.HasSuffix(out, "\n") {
		t.Error("trailing newlines should be trimmed")
	}

	if out := Message(body, false, opts); !strings.Contains(out, "step one") {
		t.Errorf("reasoning should be kept: %q", out)
	}

	// unknown style falls back to plain text
	if out := Message("plain *text*", false, opts.WithStyle("nope")); out != "plain *text*" {
		t.Errorf("fallback = %q", out)
	}
}

func TestCountCodeBlocks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"none", "just text", 0},
		{"open fence", "```go\nfunc main() {", 0},
		{"one", "a\n```go\nx := 1\n```\nb", 1},
		{"one and open", "```\na\n```\n```py\nb", 1},
		{"two", "```\na\n```\n```\nb\n```", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountCodeBlocks(tt.text); got != tt.want {
				t.Errorf("CountCodeBlocks() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCodeBlocks(t *testing.T) {
	text := "Intro\n```go\nfmt.Println(1)\n```\nmid\n```\nls -la\n```\n```py\nunfinished"
	blocks := CodeBlocks(text)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d: %q", len(blocks), blocks)
	}
	if blocks[0] != "fmt.Println(1)" || blocks[1] != "ls -la" {
		t.Errorf("blocks = %q", blocks)
	}
}

func TestPoolReuse(t *testing.T) {
	ClearCache()
	opts := DefaultOptions().WithStyle(StyleASCII)

	r, err := globalPool.get(opts)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	globalPool.put(opts, r)

	if _, err := globalPool.get(opts.WithWidth(40)); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if CacheSize() != 2 {
		t.Errorf("expected 2 pools, got %d", CacheSize())
	}

	ClearCache()
	if CacheSize() != 0 {
		t.Errorf("expected 0 pools after clear, got %d", CacheSize())
	}
}

func TestPoolConcurrency(t *testing.T) {
	opts := DefaultOptions().WithStyle(StyleNoTTY)
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Markdown("`code` and text", opts); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent render failed: %v", err)
	}
}

func TestStylesAndPalettes(t *testing.T) {
	if !IsBuiltinStyle(StyleTokyoNight) || IsBuiltinStyle("/tmp/custom.json") {
		t.Error("IsBuiltinStyle misclassified styles")
	}
	if p, ok := PaletteByName("nord"); !ok || p.Name != "nord" {
		t.Errorf("PaletteByName(nord) = %v, %v", p.Name, ok)
	}
	if p, ok := PaletteByName("missing"); ok || p.Name != TokyoNight.Name {
		t.Errorf("PaletteByName(missing) = %v, %v", p.Name, ok)
	}
}
