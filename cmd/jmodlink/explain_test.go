// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/jmodlink/jmodlink/internal/issue"
	"github.com/jmodlink/jmodlink/pkg/types"
)

func TestExplainCommand(t *testing.T) {
	t.Parallel()

	list := run(t, nil, "explain")
	if list.err != nil {
		t.Fatalf("explain error = %v", list.err)
	}
	for _, i := range issue.Values() {
		if !strings.Contains(list.stdout, i.Name()) {
			t.Errorf("topic list missing %s", i.Name())
		}
	}
	if !strings.Contains(list.stdout, "Unresolved module dependency") {
		t.Errorf("topic list lacks titles:\n%s", list.stdout)
	}

	topic := run(t, nil, "explain", "unresolved-dependency")
	if topic.err != nil {
		t.Fatalf("explain unresolved-dependency error = %v", topic.err)
	}
	if !strings.Contains(topic.stdout, "Unresolved module dependency") {
		t.Errorf("rendered topic:\n%s", topic.stdout)
	}

	unknown := run(t, nil, "explain", "no-such-topic")
	if unknown.code() != types.ExitUsage || !errors.Is(unknown.err, errUnknownTopic) {
		t.Errorf("explain no-such-topic = %v (code %d)", unknown.err, unknown.code())
	}
}

func TestTitle(t *testing.T) {
	t.Parallel()

	if got := title("\n# Heading one\n\n## Sub\n"); got != "Heading one" {
		t.Errorf("title() = %q", got)
	}
	if got := title("no heading"); got != "" {
		t.Errorf("title() = %q, want empty", got)
	}
}
