package main

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/tools/go/analysis/analysistest"
)

func TestAnalyzerFlagsUnreleasedTake(t *testing.T) {
	testdata := t.TempDir()

	pkgDir := filepath.Join(testdata, "src", "a")
	if err := os.MkdirAll(pkgDir, 0755); err != nil {
		t.Fatal(err)
	}

	badGoCode := `package a

import "context"

type pool struct{}
type handle struct{}

func (p *pool) Take(ctx context.Context) (int, *handle, error) { return 0, nil, nil }
func (p *pool) TryTake(ctx context.Context) (int, *handle, bool) { return 0, nil, false }
func (p *pool) Put(h *handle, r int)     {}
func (p *pool) Destroy(h *handle, r int) {}
func (p *pool) WithResource(ctx context.Context, fn func(int) error) error { return fn(0) }

func leaksOnTake(ctx context.Context, p *pool) {
	r, _, _ := p.Take(ctx) // want "call to Take has no matching Put or Destroy in this function"
	_ = r
}

func leaksOnTryTake(ctx context.Context, p *pool) {
	r, _, ok := p.TryTake(ctx) // want "call to TryTake has no matching Put or Destroy in this function"
	if ok {
		_ = r
	}
}

func releasesWithPut(ctx context.Context, p *pool) {
	r, h, err := p.Take(ctx)
	if err != nil {
		return
	}
	p.Put(h, r)
}

func releasesWithDestroy(ctx context.Context, p *pool) {
	r, h, err := p.Take(ctx)
	if err != nil {
		return
	}
	p.Destroy(h, r)
}

func borrowsViaWithResource(ctx context.Context, p *pool) error {
	return p.WithResource(ctx, func(r int) error { return nil })
}
`
	if err := os.WriteFile(filepath.Join(pkgDir, "a.go"), []byte(badGoCode), 0644); err != nil {
		t.Fatal(err)
	}

	analysistest.Run(t, testdata, Analyzer, "a")
}
