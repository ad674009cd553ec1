package signing

import (
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	ts := time.Date(2012, 10, 11, 17, 10, 17, 999_000_000, loc)

	assert.Equal(t, "2012-10-11T15:10:17Z", Timestamp(ts))
}

func TestCanonicalString(t *testing.T) {
	got := CanonicalString("GET", "http://imbo/users/christer/images.json?limit=1&page=2", "public", "2012-10-11T15:10:17Z")
	assert.Equal(t, "GET|http://imbo/users/christer/images.json?limit=1&page=2|public|2012-10-11T15:10:17Z", got)
}

func TestSignature(t *testing.T) {
	tests := []struct {
		name   string
		method string
		url    string
		want   string
	}{
		{
			name:   "get with query",
			method: "GET",
			url:    "http://imbo/users/christer/images.json?limit=1",
			want:   "e93ee0a021ff3d5f607ab5001fd09a8081dfe1fd3281a31a0771065ac45ef47a",
		},
		{
			name:   "post",
			method: "POST",
			url:    "http://imbo/users/christer/images",
			want:   "9ebaac488d4c7d8815151ac91436a3df8bd66aca7e46cd218c83f29aa74e4e4d",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Signature(tt.method, tt.url, "public", "2012-10-11T15:10:17Z", "private")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSignatureDeterministic(t *testing.T) {
	first := Signature("DELETE", "http://imbo/users/u/images/id", "pub", "2020-01-01T00:00:00Z", "secret")
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Signature("DELETE", "http://imbo/users/u/images/id", "pub", "2020-01-01T00:00:00Z", "secret"))
	}
}

func TestSignatureDiffersPerPrivateKey(t *testing.T) {
	seen := make(map[string]string)
	for i := 0; i < 200; i++ {
		buf := make([]byte, 16)
		_, err := rand.Read(buf)
		require.NoError(t, err)
		key := hex.EncodeToString(buf)
		if _, dup := seen[key]; dup {
			continue
		}

		sig := Signature("PUT", "http://imbo/users/u/images/id/metadata", "pub", "2020-01-01T00:00:00Z", key)
		for otherKey, otherSig := range seen {
			if otherSig == sig {
				t.Fatalf("signature collision between keys %q and %q", key, otherKey)
			}
		}
		seen[key] = sig
	}
	assert.GreaterOrEqual(t, len(seen), 100)
}

func TestWithAccessToken(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "no query",
			url:  "http://localhost",
			want: "http://localhost?accessToken=bf665e1992efad22fa376ca62c7d2b4087132b660d508fbf75edd4fcd8bd3e1f",
		},
		{
			name: "stale token replaced",
			url:  "http://localhost?accessToken=stale",
			want: "http://localhost?accessToken=bf665e1992efad22fa376ca62c7d2b4087132b660d508fbf75edd4fcd8bd3e1f",
		},
		{
			name: "existing params keep their order",
			url:  "http://imbo/users/u/images.json?page=2&accessToken=old&limit=5",
			want: "http://imbo/users/u/images.json?page=2&limit=5&accessToken=403e82e3ddfe52e0db128579d54491ea269fbe01288c86bc8694eaefa0f0ce6c",
		},
		{
			name: "transformations",
			url:  "http://imbo/users/u/images/abc.png?t[]=thumbnail:width=50,height=50,fit=outbound",
			want: "http://imbo/users/u/images/abc.png?t[]=thumbnail:width=50,height=50,fit=outbound&accessToken=49724b1ba23fc2e90e405f80ccdabd2ce6e72c1d58ee9c2cd2b4278006fafaf1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithAccessToken(tt.url, "key"))
		})
	}
}

func TestWithAccessTokenConverges(t *testing.T) {
	a := WithAccessToken("http://imbo/users/u.json?accessToken=one", "key")
	b := WithAccessToken("http://imbo/users/u.json?accessToken=two", "key")
	assert.Equal(t, a, b)

	// Re-tokenizing an already tokenized URL changes nothing.
	assert.Equal(t, a, WithAccessToken(a, "key"))
}

func TestStripAccessToken(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		wantURL      string
		wantFragment string
	}{
		{"only token", "http://h/p?accessToken=x", "http://h/p", ""},
		{"encoded key", "http://h/p?a=1&access%54oken=x", "http://h/p?a=1", ""},
		{"fragment", "http://h/p?a=1&accessToken=x#top", "http://h/p?a=1", "top"},
		{"empty pairs", "http://h/p?&a=1&&b=2", "http://h/p?a=1&b=2", ""},
		{"similar name kept", "http://h/p?accessTokens=1", "http://h/p?accessTokens=1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotURL, gotFragment := StripAccessToken(tt.url)
			assert.Equal(t, tt.wantURL, gotURL)
			assert.Equal(t, tt.wantFragment, gotFragment)
		})
	}
}
