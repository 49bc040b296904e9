//go:build e2e

package accordion_test

import (
	"context"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/accordion"
	"github.com/livetemplate/accordion/internal/config"
	"github.com/livetemplate/accordion/internal/server"
	"github.com/livetemplate/accordion/internal/store"
)

// findChrome returns a local Chrome binary or skips the test
func findChrome(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("Chrome not found; skipping browser test")
	return ""
}

// browser starts headless Chrome and records console output and dialogs.
// Dialogs are accepted so window.alert never blocks the page.
func browser(t *testing.T) (context.Context, *[]string) {
	t.Helper()
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(findChrome(t)),
		chromedp.NoSandbox,
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(t.Logf))
	ctx, timeoutCancel := context.WithTimeout(ctx, 60*time.Second)
	t.Cleanup(func() {
		timeoutCancel()
		ctxCancel()
		allocCancel()
	})

	var alerts []string
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *page.EventJavascriptDialogOpening:
			alerts = append(alerts, ev.Message)
			go chromedp.Run(ctx, page.HandleJavaScriptDialog(true))
		case *cdpruntime.EventConsoleAPICalled:
			for _, arg := range ev.Args {
				t.Logf("console.%s: %s", ev.Type, arg.Value)
			}
		}
	})
	return ctx, &alerts
}

func startWidget(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.CreateContainer(ctx, "Announcements", "", store.GenericListTemplate))
	_, err := s.AddItem(ctx, "Announcements", accordion.Item{Title: "Welcome", Description: "<p>Hi</p>"})
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Store.Type = "memory"
	cfg.Widget.List = "Announcements"

	srv, err := server.New(cfg, "", s)
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts, s
}

func TestAccordionInBrowser(t *testing.T) {
	ts, s := startWidget(t)
	ctx, alerts := browser(t)

	// Read mode: one collapsed panel
	var title, body string
	var open bool
	err := chromedp.Run(ctx,
		chromedp.Navigate(ts.URL+"/?mode=read"),
		chromedp.WaitVisible(`details.acc-item summary`, chromedp.ByQuery),
		chromedp.Text(`details.acc-item .acc-title`, &title, chromedp.ByQuery),
		chromedp.Evaluate(`document.querySelector("details.acc-item").open`, &open),
	)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", title)
	assert.False(t, open, "panels start collapsed")

	err = chromedp.Run(ctx,
		chromedp.Click(`details.acc-item summary`, chromedp.ByQuery),
		chromedp.WaitVisible(`details.acc-item .acc-body`, chromedp.ByQuery),
		chromedp.Text(`details.acc-item .acc-body`, &body, chromedp.ByQuery),
	)
	require.NoError(t, err)
	assert.Equal(t, "Hi", strings.TrimSpace(body))

	// Edit mode: an empty title alerts without writing
	err = chromedp.Run(ctx,
		chromedp.Navigate(ts.URL+"/?mode=edit"),
		chromedp.WaitVisible(`button[data-action="add"]`, chromedp.ByQuery),
		chromedp.Click(`button[data-action="add"]`, chromedp.ByQuery),
		chromedp.WaitVisible(`#acc-title`, chromedp.ByID),
		chromedp.Click(`form.acc-form button[type="submit"]`, chromedp.ByQuery),
		chromedp.Sleep(300*time.Millisecond),
	)
	require.NoError(t, err)
	assert.Contains(t, *alerts, "Please enter a title.")

	// Submit a row
	err = chromedp.Run(ctx,
		chromedp.SendKeys(`#acc-title`, "Update", chromedp.ByID),
		chromedp.Evaluate(`(() => {
			const editor = document.getElementById("acc-description-editor");
			editor.innerHTML = "<p>New</p>";
			editor.dispatchEvent(new Event("input", {bubbles: true}));
		})()`, nil),
		chromedp.Click(`form.acc-form button[type="submit"]`, chromedp.ByQuery),
		chromedp.WaitVisible(`button[data-action="add"]`, chromedp.ByQuery),
	)
	require.NoError(t, err)

	items, err := s.ListItems(context.Background(), "Announcements")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, accordion.Item{Title: "Update", Description: "<p>New</p>"}, items[1])

	// A fresh read mount shows both rows in order
	var titles []string
	err = chromedp.Run(ctx,
		chromedp.Navigate(ts.URL+"/?mode=read"),
		chromedp.WaitVisible(`details.acc-item[data-index="1"]`, chromedp.ByQuery),
		chromedp.Evaluate(`Array.from(document.querySelectorAll(".acc-title")).map(e => e.textContent)`, &titles),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"Welcome", "Update"}, titles)
}
