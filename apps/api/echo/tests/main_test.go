package tests

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	. "github.com/angeraphael/parrainage/apps/api/echo"
	"github.com/angeraphael/parrainage/core"
	"github.com/angeraphael/parrainage/core/referral"
	"github.com/angeraphael/parrainage/services/email"
	"github.com/angeraphael/parrainage/services/logger"
	"github.com/angeraphael/parrainage/services/upstream"
	"github.com/angeraphael/parrainage/storage/inmem"
	"github.com/angeraphael/parrainage/tests"
)

var (
	conf   core.Config
	logger core.Logger

	errMissingToken = httpErr{Error: "missing or malformed token"}
	errNotFound     = httpErr{Error: "not found"}
)

func TestMain(m *testing.M) {
	conf = *core.Conf
	conf.Debug = false
	conf.TestMode = true

	std := logrus.New()
	std.SetOutput(io.Discard)
	logger = logsvc.NewRollbarLogger(std, &conf)

	os.Exit(m.Run())
}

type testApp struct {
	*Server
	repo     *testutil.FakeRepository
	mailSvc  *emailsvc.ConsoleService
	sessions *inmemdb.SessionStore
}

// newTestApp sets up a server backed by a fake driving-school API.
func newTestApp() *testApp {
	repo := testutil.NewFakeRepository()
	app := newTestAppWith(repo)
	app.repo = repo
	return app
}

// newUpstreamTestApp sets up a server whose driving-school API is served over HTTP by handler.
func newUpstreamTestApp(t *testing.T, handler http.HandlerFunc) *testApp {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newTestAppWith(upstream.NewClient(core.UpstreamConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}))
}

func newTestAppWith(repo referral.Repository) *testApp {
	mailSvc := emailsvc.NewConsoleServiceMock()
	sessions := inmemdb.NewSessionStore(conf.Server.SessionTTL)

	app := NewServer(ServerDeps{
		Conf:           &conf,
		Logger:         logger,
		ReferralSvc:    referral.NewService(repo, mailSvc, conf.Upstream.TreeDepth),
		Sessions:       sessions,
		DisableReqLogs: true,
	})
	return &testApp{Server: app, mailSvc: mailSvc, sessions: sessions}
}
