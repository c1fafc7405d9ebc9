// Command framework-check loads an export document, rebuilds the framework
// from it wholesale, and reports every consistency issue the validation
// rules find. Exits non-zero when any error-severity issue is present.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"p3if/internal/core"
	"p3if/pkg/framework"
)

var (
	exitFunc           = os.Exit
	stdout   io.Writer = os.Stdout
	stderr   io.Writer = os.Stderr
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: framework-check <document.json>")
		exitFunc(2)
		return
	}
	ok, err := run(context.Background(), flag.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "framework-check: %v\n", err)
		exitFunc(1)
		return
	}
	if !ok {
		exitFunc(1)
	}
}

func run(ctx context.Context, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	doc, err := framework.DecodeDocument(data)
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}

	store := core.NewStore(nil)
	store.ImportState(doc)

	report, err := store.Validate(ctx)
	if err != nil {
		return false, fmt.Errorf("validate: %w", err)
	}
	for _, issue := range report.Issues {
		fmt.Fprintf(stdout, "%s %s %s/%s: %s\n", issue.Severity, issue.Rule, issue.Kind, issue.EntityID, issue.Message)
	}
	if !report.Valid() {
		fmt.Fprintf(stdout, "%d issue(s), %d error(s)\n", len(report.Issues), report.Count(framework.SeverityError))
		return false, nil
	}
	fmt.Fprintf(stdout, "ok: %d pattern(s), %d relationship(s)\n", len(doc.Patterns), len(doc.Relationships))
	return true, nil
}
