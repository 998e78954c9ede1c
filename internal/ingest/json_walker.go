package ingest

import (
	"fmt"
	"sync"

	"github.com/ohler55/ojg/jp"
)

// JsonWalker implements Walker for JSON-like data using JSONPath selectors.
// Parsed expressions are cached, so one walker should serve a whole build.
type JsonWalker struct {
	mu    sync.Mutex
	exprs map[string]jp.Expr
}

func NewJsonWalker() *JsonWalker {
	return &JsonWalker{exprs: make(map[string]jp.Expr)}
}

// Query implements Walker.
func (w *JsonWalker) Query(root any, selector string) ([]any, error) {
	x, err := w.compile(selector)
	if err != nil {
		return nil, err
	}
	return x.Get(root), nil
}

func (w *JsonWalker) compile(selector string) (jp.Expr, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if x, ok := w.exprs[selector]; ok {
		return x, nil
	}
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	w.exprs[selector] = x
	return x, nil
}
