package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"talentpool-backend/internal/cache"
	"talentpool-backend/internal/model"
)

func TestMailer(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer mail-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	m := NewMailer(srv.URL, "mail-key", "noreply@talentpool.dev")
	err := m.SendEmail(context.Background(), Email{To: "alice@example.com", Subject: "Hi", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, "noreply@talentpool.dev", got["from"])
	assert.Equal(t, []interface{}{"alice@example.com"}, got["to"])
	assert.Equal(t, "Hi", got["subject"])

	t.Run("Invalid recipient", func(t *testing.T) {
		err := m.SendEmail(context.Background(), Email{To: "not-an-email", Subject: "Hi", HTML: "x"})
		assert.EqualError(t, err, "invalid recipient address")
	})

	t.Run("Disabled", func(t *testing.T) {
		err := NewMailer("", "", "").SendEmail(context.Background(), Email{To: "a@b.co", Subject: "s", HTML: "h"})
		assert.ErrorIs(t, err, ErrDisabled)
	})
}

func TestMailerUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	err := NewMailer(srv.URL, "k", "f@x.io").SendEmail(context.Background(), Email{To: "a@b.co", Subject: "s", HTML: "h"})
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnauthorized, upstream.Status)
	assert.Equal(t, "email", upstream.Service)
	assert.Contains(t, upstream.Error(), "bad key")
}

func TestWhatsApp(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/phone-1/messages", r.URL.Path)
		assert.Equal(t, "Bearer wa-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid"}]}`))
	}))
	defer srv.Close()

	wa := NewWhatsApp(srv.URL, "wa-token", "phone-1")
	err := wa.SendWhatsApp(context.Background(), WhatsAppMessage{
		To:       "+66812345678",
		Template: "interview_invite",
		Params:   []string{"Alice", "Monday"},
	})
	require.NoError(t, err)
	assert.Equal(t, "whatsapp", got["messaging_product"])
	assert.Equal(t, "66812345678", got["to"])
	tpl := got["template"].(map[string]interface{})
	assert.Equal(t, "interview_invite", tpl["name"])
	assert.Equal(t, "en_US", tpl["language"].(map[string]interface{})["code"])
	assert.Len(t, tpl["components"], 1)
}

func TestWhatsAppMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     WhatsAppMessage
		wantErr bool
	}{
		{"Valid", WhatsAppMessage{To: "+66812345678", Template: "t"}, false},
		{"Too short", WhatsAppMessage{To: "1234", Template: "t"}, true},
		{"Letters", WhatsAppMessage{To: "+6681234abcd", Template: "t"}, true},
		{"No template", WhatsAppMessage{To: "66812345678", Template: " "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestYouTubeSearch(t *testing.T) {
	var gotQuery, gotMax string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/search"))
		gotQuery = r.URL.Query().Get("q")
		gotMax = r.URL.Query().Get("maxResults")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"id":{"kind":"youtube#video","videoId":"abc123"},"snippet":{"title":"Go in 100 seconds","channelTitle":"Fireship","description":"go","publishedAt":"2021-01-01T00:00:00Z","thumbnails":{"medium":{"url":"https://img/abc"}}}},
			{"id":{"kind":"youtube#channel","channelId":"xyz"},"snippet":{"title":"channel"}}
		]}`))
	}))
	defer srv.Close()

	yt, err := NewYouTube(context.Background(), "yt-key", option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	videos, err := yt.SearchVideos(context.Background(), "golang interview", 50)
	require.NoError(t, err)
	assert.Equal(t, "golang interview", gotQuery)
	assert.Equal(t, "25", gotMax)
	require.Len(t, videos, 1)
	assert.Equal(t, "abc123", videos[0].ID)
	assert.Equal(t, "Fireship", videos[0].Channel)
	assert.Equal(t, "https://img/abc", videos[0].ThumbnailURL)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", videos[0].URL)

	_, err = yt.SearchVideos(context.Background(), "  ", 5)
	assert.Error(t, err)
}

func TestYouTubeDisabled(t *testing.T) {
	yt, err := NewYouTube(context.Background(), "")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Nil(t, yt)

	_, err = yt.SearchVideos(context.Background(), "go", 5)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestGeoLocate(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/8.8.8.8", r.URL.Path)
		// some ip-api mirrors answer JSON as text/plain
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(`{"status":"success","country":"United States","city":"Mountain View"}`))
	}))
	defer srv.Close()

	shared := cache.NewMemory()
	geo := NewGeo(srv.URL, shared)
	loc, err := geo.Locate(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, Location{Country: "United States", City: "Mountain View"}, loc)

	// cached
	_, err = geo.Locate(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var stored Location
	found, err := shared.Get(context.Background(), "geo:8.8.8.8", &stored)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, loc, stored)

	// another locator on the same cache reuse the answer
	_, err = NewGeo(srv.URL, shared).Locate(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	loc, err = geo.Locate(context.Background(), "192.168.1.10")
	require.NoError(t, err)
	assert.Equal(t, Location{}, loc)
	loc, err = geo.Locate(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, Location{}, loc)
	assert.Equal(t, int32(1), calls.Load())

	// without cache every lookup reach upstream
	uncached := NewGeo(srv.URL, nil)
	_, err = uncached.Locate(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	_, err = NewGeo("", shared).Locate(context.Background(), "8.8.8.8")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestGotenbergRender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		assert.Equal(t, "index.html", header.Filename)
		body, _ := io.ReadAll(file)
		assert.Equal(t, "<h1>Offer</h1>", string(body))
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 fake"))
	}))
	defer srv.Close()

	pdf, err := NewGotenberg(srv.URL).RenderPDF(context.Background(), "<h1>Offer</h1>")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 fake", string(pdf))

	_, err = NewGotenberg("").RenderPDF(context.Background(), "x")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestRazorpayCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_key", user)
		assert.Equal(t, "rzp_secret", pass)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(49900), body["amount"])
		assert.Equal(t, "INR", body["currency"])
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(`{"id":"order_1","amount":49900,"currency":"INR","receipt":"r1","status":"created"}`))
	}))
	defer srv.Close()

	rp := NewRazorpay(srv.URL, "rzp_key", "rzp_secret")
	order, err := rp.CreateOrder(context.Background(), 49900, "INR", "r1")
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)
	assert.Equal(t, int64(49900), order.Amount)
	assert.Equal(t, "rzp_key", rp.KeyID())

	_, err = rp.CreateOrder(context.Background(), 0, "INR", "r1")
	assert.Error(t, err)
}

func TestRazorpayVerifySignature(t *testing.T) {
	rp := NewRazorpay("http://unused", "rzp_key", "rzp_secret")
	sig := Sign("rzp_secret", "order_1|pay_1")

	assert.NoError(t, rp.VerifySignature("order_1", "pay_1", sig))
	assert.ErrorIs(t, rp.VerifySignature("order_1", "pay_2", sig), ErrInvalidSignature)
	assert.ErrorIs(t, rp.VerifySignature("order_1", "pay_1", "deadbeef"), ErrInvalidSignature)
	assert.ErrorIs(t, NewRazorpay("", "", "").VerifySignature("o", "p", sig), ErrDisabled)
}

func TestSign(t *testing.T) {
	// RFC 4231 test case 2
	assert.Equal(t,
		"5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843",
		Sign("Jefe", "what do ya want for nothing?"))
}

func TestOpenAIGenerateJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.Equal(t, "json_object", body["response_format"].(map[string]interface{})["type"])
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	answer, err := NewOpenAI(srv.URL, "sk-test", "gpt-4o-mini").GenerateJSON(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, answer)

	_, err = NewOpenAI(srv.URL, "", "m").GenerateJSON(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrDisabled)
}

type fakeGenerator struct {
	answer string
	err    error
	prompt string
}

func (f *fakeGenerator) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func TestExtractJob(t *testing.T) {
	gen := &fakeGenerator{answer: "```json\n" + `{
		"title": " Backend Engineer ",
		"skills": ["Go", "PostgreSQL", "go", ""],
		"min_experience": 3.0,
		"education": "Bachelor",
		"location": "Bangkok",
		"employment_type": "full-time",
		"summary": "Build APIs"
	}` + "\n```"}

	job, err := ExtractJob(context.Background(), gen, "We need a Go engineer with 3 years of experience")
	require.NoError(t, err)
	assert.Contains(t, gen.prompt, "We need a Go engineer")
	assert.Equal(t, "Backend Engineer", job.Title)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, []string(job.Skills))
	assert.Equal(t, 3, job.MinExperience)
	assert.Equal(t, "Bangkok", job.Location)

	t.Run("Garbage answer", func(t *testing.T) {
		_, err := ExtractJob(context.Background(), &fakeGenerator{answer: "sorry, I can't"}, "desc")
		assert.ErrorIs(t, err, ErrBadAnswer)
	})

	t.Run("Generator error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := ExtractJob(context.Background(), &fakeGenerator{err: boom}, "desc")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Empty description", func(t *testing.T) {
		_, err := ExtractJob(context.Background(), gen, "  ")
		assert.Error(t, err)
	})

	t.Run("No generator", func(t *testing.T) {
		_, err := ExtractJob(context.Background(), nil, "desc")
		assert.ErrorIs(t, err, ErrDisabled)
	})
}

func TestDraftFeedback(t *testing.T) {
	gen := &fakeGenerator{answer: `{"strengths":["clear communication"],"improvements":null,"overall_score":14}`}
	transcript := []model.TranscriptEntry{
		{Speaker: "HR", Text: "Tell me about yourself"},
		{Speaker: "Alice", Text: "I build Go services"},
	}

	fb, err := DraftFeedback(context.Background(), gen, "Backend Engineer", transcript)
	require.NoError(t, err)
	assert.Contains(t, gen.prompt, "Alice: I build Go services")
	assert.Contains(t, gen.prompt, "Backend Engineer")
	assert.Equal(t, []string{"clear communication"}, fb.Strengths)
	assert.Equal(t, []string{}, fb.Improvements)
	assert.Equal(t, 10, fb.OverallScore)

	_, err = DraftFeedback(context.Background(), gen, "x", nil)
	assert.Error(t, err)
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSON("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, cleanJSON(`  {"a":1} `))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"Disabled", ErrDisabled, http.StatusServiceUnavailable},
		{"Wrapped disabled", fmt.Errorf("mailer: %w", ErrDisabled), http.StatusServiceUnavailable},
		{"Upstream", &UpstreamError{Service: "openai", Status: 500}, http.StatusBadGateway},
		{"Bad answer", fmt.Errorf("%w: eof", ErrBadAnswer), http.StatusBadGateway},
		{"Timeout", fmt.Errorf("call: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
