package echoapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/angeraphael/parrainage/core/referral"
	inmemdb "github.com/angeraphael/parrainage/storage/inmem"
)

type referralApi struct {
	svc      *referral.Service
	sessions *inmemdb.SessionStore
	metrics  *metrics
}

func registerReferralAPI(
	g *echo.Group,
	auth echo.MiddlewareFunc,
	svc *referral.Service,
	sessions *inmemdb.SessionStore,
	m *metrics,
) {
	api := referralApi{
		svc:      svc,
		sessions: sessions,
		metrics:  m,
	}

	rg := g.Group("/parrainage", auth)
	rg.GET("", api.info)
	rg.GET("/filleuls", api.filleuls)
	rg.POST("/partage", api.share)

	// tree sessions
	tg := rg.Group("/arbre")
	tg.POST("", api.createTree)
	tg.GET("/:session", api.retrieveTree)
	tg.POST("/:session/recharger", api.reloadTree)
	tg.POST("/:session/noeuds/:id/basculer", api.toggleNode)
	tg.DELETE("/:session", api.destroyTree)
}

type (
	FilleulsResponse struct {
		Filleuls []referral.Filleul `json:"filleuls"`
		Total    int                `json:"total"`
	}

	TreeResponse struct {
		Session uuid.UUID          `json:"session"`
		Depth   int                `json:"profondeur"`
		Stats   referral.Stats     `json:"stats"`
		Empty   bool               `json:"vide"`
		Tree    *referral.ViewNode `json:"arbre"`
	}
)

func newTreeResponse(id uuid.UUID, snap *referral.Snapshot) TreeResponse {
	return TreeResponse{
		Session: id,
		Depth:   snap.Depth,
		Stats:   snap.Stats,
		Empty:   snap.Empty(),
		Tree:    snap.View(),
	}
}

// Handlers

func (api *referralApi) info(ctx echo.Context) error {
	token, err := getContextToken(ctx)
	if err != nil {
		return err
	}
	info, err := api.svc.Info(ctx.Request().Context(), token)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, info)
}

func (api *referralApi) filleuls(ctx echo.Context) error {
	token, err := getContextToken(ctx)
	if err != nil {
		return err
	}
	filleuls, err := api.svc.Filleuls(ctx.Request().Context(), token)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, FilleulsResponse{Filleuls: filleuls, Total: len(filleuls)})
}

func (api *referralApi) share(ctx echo.Context) error {
	token, err := getContextToken(ctx)
	if err != nil {
		return err
	}
	var data referral.ShareRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ShareRequest")
	}
	to, err := data.Validate()
	if err != nil {
		return err
	}
	if err := api.svc.Share(ctx.Request().Context(), token, to...); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusAccepted)
}

func (api *referralApi) createTree(ctx echo.Context) error {
	token, err := getContextToken(ctx)
	if err != nil {
		return err
	}
	depth, err := bindDepth(ctx)
	if err != nil {
		return err
	}

	sess := api.sessions.Create(token, api.svc.NewLoader(token), api.svc.Depth(depth))
	snap, err := sess.Load(ctx.Request().Context(), depth)
	api.metrics.observeLoad(snap, err)
	if err != nil {
		_ = api.sessions.Delete(sess.ID, token)
		return err
	}
	return api.respondSnapshot(ctx, http.StatusCreated, sess, snap)
}

func (api *referralApi) retrieveTree(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}
	return api.respondTree(ctx, http.StatusOK, sess)
}

// reloadTree refetches the tree; the expansion state starts over.
func (api *referralApi) reloadTree(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}
	depth, err := bindDepth(ctx)
	if err != nil {
		return err
	}
	snap, err := sess.Load(ctx.Request().Context(), depth)
	api.metrics.observeLoad(snap, err)
	if err != nil {
		return err
	}
	return api.respondSnapshot(ctx, http.StatusOK, sess, snap)
}

func (api *referralApi) toggleNode(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}
	id, err := bindNodeID(ctx)
	if err != nil {
		return err
	}

	var res TreeResponse
	err = sess.With(func(snap *referral.Snapshot) error {
		if _, err := snap.Toggle(id); err != nil {
			return err
		}
		res = newTreeResponse(sess.ID, snap)
		return nil
	})
	if err != nil {
		return err
	}
	api.metrics.toggles.Inc()
	return ctx.JSON(http.StatusOK, res)
}

func (api *referralApi) destroyTree(ctx echo.Context) error {
	token, err := getContextToken(ctx)
	if err != nil {
		return err
	}
	id, err := bindSessionID(ctx)
	if err != nil {
		return err
	}
	if err := api.sessions.Delete(id, token); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Helpers

func (api *referralApi) getSession(ctx echo.Context) (*inmemdb.Session, error) {
	token, err := getContextToken(ctx)
	if err != nil {
		return nil, err
	}
	id, err := bindSessionID(ctx)
	if err != nil {
		return nil, err
	}
	return api.sessions.Get(id, token)
}

// respondSnapshot answers with snap, the snapshot this request loaded.
func (api *referralApi) respondSnapshot(ctx echo.Context, code int, sess *inmemdb.Session, snap *referral.Snapshot) error {
	var res TreeResponse
	_ = sess.Use(snap, func(snap *referral.Snapshot) error {
		res = newTreeResponse(sess.ID, snap)
		return nil
	})
	return ctx.JSON(code, res)
}

func (api *referralApi) respondTree(ctx echo.Context, code int, sess *inmemdb.Session) error {
	var res TreeResponse
	err := sess.With(func(snap *referral.Snapshot) error {
		res = newTreeResponse(sess.ID, snap)
		return nil
	})
	if err != nil {
		return err
	}
	return ctx.JSON(code, res)
}
