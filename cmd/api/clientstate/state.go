// Package clientstate 는 브라우저가 들고 다니는 대화 세션 인덱스를 다룬다.
//
// 서버는 이 값을 신뢰하지 않는다. 디코딩에 실패하면 빈 상태로 취급하고,
// 음수/0 id 와 중복 id 는 버리며, 이전 세션 목록은 최대 길이로 잘라낸다.
package clientstate

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const HeaderName = "X-Chat-State"

// State 는 현재 세션과 이전 세션 id 목록(오래된 순, 중복 없음)이다.
type State struct {
	Current  int64   `json:"current,omitempty"`
	Previous []int64 `json:"previous,omitempty"`
}

// Archive 는 현재 세션을 이전 목록 끝에 추가한다. 이미 있으면 그대로 둔다.
func (s *State) Archive() {
	if s.Current <= 0 {
		return
	}
	for _, id := range s.Previous {
		if id == s.Current {
			return
		}
	}
	s.Previous = append(s.Previous, s.Current)
}

// Clone 은 Previous 슬라이스를 공유하지 않는 복사본을 반환한다.
func (s State) Clone() State {
	out := State{Current: s.Current}
	if len(s.Previous) > 0 {
		out.Previous = append([]int64(nil), s.Previous...)
	}
	return out
}

// normalize 는 신뢰할 수 없는 입력을 정리한다.
func (s State) normalize(maxPrevious int) State {
	out := State{}
	if s.Current > 0 {
		out.Current = s.Current
	}
	seen := make(map[int64]struct{}, len(s.Previous))
	for _, id := range s.Previous {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out.Previous = append(out.Previous, id)
	}
	if maxPrevious > 0 && len(out.Previous) > maxPrevious {
		out.Previous = out.Previous[len(out.Previous)-maxPrevious:]
	}
	return out
}

// Codec 은 State 를 쿠키/헤더 값(base64url JSON)으로 주고받는다.
type Codec struct {
	CookieName  string
	MaxPrevious int
	Secure      bool
}

func (c Codec) Encode(s State) string {
	b, err := json.Marshal(s.normalize(c.MaxPrevious))
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode 는 잘못된 값에 대해 에러 대신 빈 State 를 반환한다.
func (c Codec) Decode(raw string) State {
	if raw == "" {
		return State{}
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return State{}
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return State{}
	}
	return s.normalize(c.MaxPrevious)
}

// Read 는 X-Chat-State 헤더를 우선 사용하고, 없으면 쿠키에서 읽는다.
func (c Codec) Read(ctx *gin.Context) State {
	if raw := ctx.GetHeader(HeaderName); raw != "" {
		return c.Decode(raw)
	}
	raw, err := ctx.Cookie(c.CookieName)
	if err != nil {
		return State{}
	}
	return c.Decode(raw)
}

// Write 는 갱신된 상태를 쿠키와 응답 헤더 양쪽에 기록한다.
func (c Codec) Write(ctx *gin.Context, s State) {
	value := c.Encode(s)
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(c.CookieName, value, 0, "/", "", c.Secure, true)
	ctx.Header(HeaderName, value)
}
