package inquire

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// clientV2 speaks API version 2: all resources live under /v2, submit
// parameters travel as a form body and only the long message tags are
// accepted.
type clientV2 struct {
	wire
}

var _ Client = (*clientV2)(nil)

func (c *clientV2) Version() int { return 2 }

func (c *clientV2) Login(ctx context.Context, username, password string) (string, error) {
	return c.session.login(ctx, "/v2/auth/login", username, password)
}

func (c *clientV2) Logout(ctx context.Context) {
	c.session.logout(ctx, "/v2/auth/logout")
}

func (c *clientV2) SharedQueries(ctx context.Context, lds string) ([]SharedQuery, error) {
	return c.session.listSharedQueries(ctx, ldsPath("/v2/tql", lds, "/shared-queries"), lds)
}

func (c *clientV2) Submit(ctx context.Context, lds, identifier string, p Params) (Message, *Poller, error) {
	build := func(params paramList) request {
		return request{
			method: http.MethodPost,
			path:   ldsPath("/v2/tql", lds, "/shared-queries/submit"),
			form:   params,
		}
	}
	return c.submit(ctx, lds, identifier, p, build, "pageSize", tagsV2, c.poll)
}

func (c *clientV2) poll(ctx context.Context, ref queryRef, id string, timeout time.Duration) (Message, error) {
	return c.exchange(ctx, "poll", request{
		method:  http.MethodGet,
		path:    "/v2/tql/poll",
		query:   paramList{{"id", id}, {"timeout", strconv.Itoa(durationSeconds(timeout))}},
		timeout: timeout + requestGrace,
	}, tagsV2, ref, id)
}
