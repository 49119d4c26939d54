package inquire

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// clientV1 speaks API version 1: submit parameters travel in the query
// string and both short and long message tags are accepted.
type clientV1 struct {
	wire
}

var _ Client = (*clientV1)(nil)

func (c *clientV1) Version() int { return 1 }

func (c *clientV1) Login(ctx context.Context, username, password string) (string, error) {
	return c.session.login(ctx, "/v1/auth/login", username, password)
}

func (c *clientV1) Logout(ctx context.Context) {
	c.session.logout(ctx, "/v1/auth/logout")
}

func (c *clientV1) SharedQueries(ctx context.Context, lds string) ([]SharedQuery, error) {
	return c.session.listSharedQueries(ctx, ldsPath("/v1/tql", lds, "/shared-queries"), lds)
}

func (c *clientV1) Submit(ctx context.Context, lds, identifier string, p Params) (Message, *Poller, error) {
	build := func(params paramList) request {
		return request{
			method: http.MethodPost,
			path:   ldsPath("/v1/tql", lds, "/shared-queries/submit"),
			query:  params,
			form:   paramList{},
		}
	}
	return c.submit(ctx, lds, identifier, p, build, "esPageSize", tagsV1, c.poll)
}

func (c *clientV1) poll(ctx context.Context, ref queryRef, id string, timeout time.Duration) (Message, error) {
	return c.exchange(ctx, "poll", request{
		method:  http.MethodGet,
		path:    "/tql/poll",
		query:   paramList{{"id", id}, {"timeout", strconv.Itoa(durationSeconds(timeout))}},
		timeout: timeout + requestGrace,
	}, tagsV1, ref, id)
}
