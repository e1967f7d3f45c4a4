package ebs

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	for in, out := range map[string]string{
		"ac-ebs.juwentus.pl/ava":         "https://ac-ebs.juwentus.pl",
		"ac-ebs.juwentus.pl/AVA":         "https://ac-ebs.juwentus.pl",
		"  ac-ebs.juwentus.pl/ava  ":     "https://ac-ebs.juwentus.pl",
		"ac-ebs.juwentus.pl/ava/":        "https://ac-ebs.juwentus.pl",
		"https://ac-ebs.juwentus.pl/ava": "https://ac-ebs.juwentus.pl",
		"HTTPS://ac-ebs.juwentus.pl/ava": "https://ac-ebs.juwentus.pl",
		"Https://ac-ebs.juwentus.pl":     "https://ac-ebs.juwentus.pl",
		"ac-ebs.juwentus.pl":             "https://ac-ebs.juwentus.pl",
		"ac-ebs.juwentus.pl:8443":        "https://ac-ebs.juwentus.pl:8443",
		"ac-ebs.juwentus.pl/lava":        "https://ac-ebs.juwentus.pl/lava",
		"ac-ebs.juwentus.pl/avatar":      "https://ac-ebs.juwentus.pl/avatar",
	} {
		t.Run(in, func(t *testing.T) {
			require.Equal(t, out, NormalizeAddress(in))
		})
	}
}

func TestNew(t *testing.T) {
	a := New("example.com/ava")
	b := New("example.com/ava")
	require.Equal(t, "https://example.com", a.BaseURL())
	require.NotEmpty(t, a.UniqID())
	require.NotEqual(t, a.UniqID(), b.UniqID())
	require.Empty(t, a.Token())
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.reply(pathLogin, http.StatusOK, `{"status_code":0,"user":{"token":"tkn"}}`)

		cli := New(srv.addr(), srv.options()...)
		require.NoError(t, cli.Login("me@example.com", "1234"))
		require.Equal(t, "tkn", cli.Token())

		reqs := srv.requestsTo(pathLogin)
		require.Len(t, reqs, 1)
		require.Equal(t, map[string]any{
			"user_mail": "me@example.com",
			"user_code": "1234",
			"uniq_id":   cli.UniqID(),
			"get_logo":  float64(0),
		}, reqs[0].Body)
	})

	t.Run("bad pin", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.reply(pathLogin, http.StatusOK, `{"status_code":5,"status_message":"bad pin"}`)

		cli := New(srv.addr(), srv.options()...)
		err := cli.Login("me@example.com", "0000")
		require.Error(t, err)

		var authErr *AuthenticationError
		require.ErrorAs(t, err, &authErr)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, int64(5), apiErr.Code)
		require.Contains(t, err.Error(), "bad pin")
		require.Empty(t, cli.Token())
	})

	t.Run("server error", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.reply(pathLogin, http.StatusInternalServerError, `oops`)

		err := New(srv.addr(), srv.options()...).Login("me@example.com", "1234")
		var authErr *AuthenticationError
		require.ErrorAs(t, err, &authErr)
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		require.Equal(t, http.StatusInternalServerError, transportErr.StatusCode)
	})

	t.Run("no token", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.reply(pathLogin, http.StatusOK, `{"status_code":0,"user":{}}`)

		err := New(srv.addr(), srv.options()...).Login("me@example.com", "1234")
		var authErr *AuthenticationError
		require.ErrorAs(t, err, &authErr)
	})
}

func TestQuery(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.reply("/ava/anything", http.StatusOK, `{"status_code":0,"foo":{"bar":42}}`)

		resp, err := New(srv.addr(), srv.options()...).Query("/ava/anything", map[string]any{"a": "b"})
		require.NoError(t, err)
		require.Equal(t, int64(42), resp.Get("foo.bar").Int())
		require.Equal(t, "b", srv.requestsTo("/ava/anything")[0].Body["a"])
	})

	t.Run("http 500 with a valid body", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.reply("/ava/anything", http.StatusInternalServerError, `{"status_code":0}`)

		_, err := New(srv.addr(), srv.options()...).Query("/ava/anything", nil)
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		require.Equal(t, http.StatusInternalServerError, transportErr.StatusCode)
	})

	t.Run("http 500 with garbage", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.reply("/ava/anything", http.StatusInternalServerError, `<html>`)

		_, err := New(srv.addr(), srv.options()...).Query("/ava/anything", nil)
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
	})

	t.Run("api error", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.reply("/ava/anything", http.StatusOK, `{"status_code":5,"status_message":"bad pin"}`)

		_, err := New(srv.addr(), srv.options()...).Query("/ava/anything", nil)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, int64(5), apiErr.Code)
		require.Equal(t, "bad pin", apiErr.Message)
		require.Contains(t, err.Error(), "bad pin")
	})

	t.Run("missing status code", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.reply("/ava/anything", http.StatusOK, `{"foo":1}`)

		_, err := New(srv.addr(), srv.options()...).Query("/ava/anything", nil)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
	})

	t.Run("invalid json", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.reply("/ava/anything", http.StatusOK, `{"status_code":`)

		_, err := New(srv.addr(), srv.options()...).Query("/ava/anything", nil)
		require.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := newFakeServer(t)
		addr, opts := srv.addr(), srv.options()
		srv.Close()

		_, err := New(addr, opts...).Query("/ava/anything", nil)
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		require.Zero(t, transportErr.StatusCode)
	})
}

func TestQueryAuth(t *testing.T) {
	t.Run("not logged in", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.reply("/ava/anything", http.StatusOK, `{"status_code":0}`)

		_, err := New(srv.addr(), srv.options()...).QueryAuth("/ava/anything", nil)
		var authErr *AuthenticationError
		require.ErrorAs(t, err, &authErr)
		require.True(t, errors.Is(err, ErrNotLoggedIn))
		require.Zero(t, srv.requestCount())
	})

	t.Run("injects session", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.reply("/ava/anything", http.StatusOK, `{"status_code":0}`)
		cli := srv.loggedIn(t)

		for i := 0; i < 3; i++ {
			_, err := cli.QueryAuth("/ava/anything", map[string]any{"foo": "bar"})
			require.NoError(t, err)
		}

		reqs := srv.requestsTo("/ava/anything")
		require.Len(t, reqs, 3)
		for _, r := range reqs {
			require.Equal(t, map[string]any{
				"foo":        "bar",
				"user_token": "tkn",
				"uniq_id":    cli.UniqID(),
			}, r.Body)
		}
	})

	t.Run("session fields win", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.reply("/ava/anything", http.StatusOK, `{"status_code":0}`)
		cli := srv.loggedIn(t)

		_, err := cli.QueryAuth("/ava/anything", map[string]any{
			"user_token": "mine",
			"uniq_id":    "mine",
		})
		require.NoError(t, err)

		body := srv.requestsTo("/ava/anything")[0].Body
		require.Equal(t, "tkn", body["user_token"])
		require.Equal(t, cli.UniqID(), body["uniq_id"])
	})
}

func TestCheckUpdate(t *testing.T) {
	srv := newFakeServer(t)
	srv.reply(pathCheckUpdate, http.StatusOK, `{"status_code":0,"objects":[{"id":"O1","name":"Home"},{"id":7}]}`)
	cli := srv.loggedIn(t)

	objects, err := cli.CheckUpdate()
	require.NoError(t, err)
	require.Len(t, objects, 2)
	require.Equal(t, "O1", objects[0].ID.String())
	require.Equal(t, "7", objects[1].ID.String())
}

func TestFullUpdate(t *testing.T) {
	srv := newFakeServer(t)
	srv.reply(pathFullUpdate, http.StatusOK, `{"status_code":0,"full_objects":[{"id":7,"partitions":[
		{"nr":1,"id":"P1","state":0,"name":"Hall"},
		{"nr":2,"id":22,"state":3,"name":"Garage"}
	]}]}`)
	cli := srv.loggedIn(t)

	objects, err := cli.FullUpdate(ID("7"))
	require.NoError(t, err)
	require.Len(t, objects, 1)
	require.Equal(t, []Partition{
		{Number: 1, ID: ID(`"P1"`), State: StateDisarmed, Name: "Hall"},
		{Number: 2, ID: ID("22"), State: StateNight, Name: "Garage"},
	}, objects[0].Partitions)

	// numeric ids go back as numbers.
	require.Equal(t, []any{float64(7)}, srv.requestsTo(pathFullUpdate)[0].Body["objects"])
}

func TestSetPartitionState(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.reply(pathSetPartition, http.StatusOK, `{"status_code":0}`)
		cli := srv.loggedIn(t)

		require.NoError(t, cli.SetPartitionState(ID(`"P1"`), StatePartial))
		body := srv.requestsTo(pathSetPartition)[0].Body
		require.Equal(t, "P1", body["partition"])
		require.Equal(t, float64(2), body["state"])
	})

	t.Run("text id that looks like a number", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.reply(pathSetPartition, http.StatusOK, `{"status_code":0}`)
		cli := srv.loggedIn(t)

		require.NoError(t, cli.SetPartitionState(StringID("7"), StateArmed))
		require.Equal(t, "7", srv.requestsTo(pathSetPartition)[0].Body["partition"])
	})

	t.Run("invalid state", func(t *testing.T) {
		srv := newFakeServer(t)
		cli := srv.loggedIn(t)

		err := cli.SetPartitionState(ID(`"P1"`), State(7))
		require.ErrorIs(t, err, ErrInvalidState)
		require.Empty(t, srv.requestsTo(pathSetPartition))
	})

	t.Run("api error", func(t *testing.T) {
		srv := newFakeServer(t)
		srv.reply(pathSetPartition, http.StatusOK, `{"status_code":12,"status_message":"open zones"}`)
		cli := srv.loggedIn(t)

		err := cli.SetPartitionState(ID(`"P1"`), StateArmed)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, "open zones", apiErr.Message)
	})
}

func TestStringID(t *testing.T) {
	require.Equal(t, ID(`"7"`), StringID("7"))
	require.Equal(t, "7", StringID("7").String())
	require.Equal(t, ID(`"P1"`), StringID("P1"))
}
