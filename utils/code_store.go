package utils

import (
	"context"
	"crypto/rand"
	"math/big"
	"sync"
	"time"
)

// One-time code purposes. Codes for different purposes never collide even
// for the same address.
const (
	CodePurposeVerify = "verify"
	CodePurposeReset  = "reset"
)

type codeEntry struct {
	code      string
	expiresAt time.Time
}

var (
	codeStore   = map[string]codeEntry{}
	codeStoreMu sync.Mutex
)

// GenerateVerificationCode creates a numeric code with given length.
func GenerateVerificationCode(n int) string {
	if n <= 0 {
		n = 6
	}
	digits := make([]byte, n)
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			v = big.NewInt(time.Now().UnixNano() % 10)
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits)
}

func codeKey(purpose, email string) string {
	return "code:" + purpose + ":" + email
}

// SaveCode stores a one-time code for an email with TTL. Prefer Redis;
// fallback to memory.
func SaveCode(purpose, email, code string, ttl time.Duration) {
	key := codeKey(purpose, email)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, key, code, ttl).Err(); err == nil {
			return
		}
	}
	codeStoreMu.Lock()
	codeStore[key] = codeEntry{code: code, expiresAt: time.Now().Add(ttl)}
	codeStoreMu.Unlock()
}

// VerifyAndConsumeCode checks a code and consumes it when valid, so every
// code is single-use.
func VerifyAndConsumeCode(purpose, email, code string) bool {
	key := codeKey(purpose, email)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if val, err := rc.GetDel(ctx, key).Result(); err == nil {
			return val == code
		}
		// GETDEL needs Redis >= 6.2; fall back to an atomic Lua get+del.
		script := `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`
		if res, err := rc.Eval(ctx, script, []string{key}).Result(); err == nil {
			s, ok := res.(string)
			return ok && s == code
		}
		// On Redis errors fall through to the memory store.
	}
	codeStoreMu.Lock()
	defer codeStoreMu.Unlock()
	entry, ok := codeStore[key]
	if !ok {
		return false
	}
	if time.Now().After(entry.expiresAt) {
		delete(codeStore, key)
		return false
	}
	if entry.code != code {
		return false
	}
	delete(codeStore, key)
	return true
}

// EmailCooldownTrySet sets a cooldown key for sending codes to an address.
// Returns true if set, false while still cooling down.
func EmailCooldownTrySet(email string, cooldown time.Duration) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ok, _ := rc.SetNX(ctx, "cooldown:email:"+email, "1", cooldown).Result()
		return ok
	}
	key := "cooldown:email:mem:" + email
	codeStoreMu.Lock()
	defer codeStoreMu.Unlock()
	if entry, ok := codeStore[key]; ok && time.Now().Before(entry.expiresAt) {
		return false
	}
	codeStore[key] = codeEntry{code: "1", expiresAt: time.Now().Add(cooldown)}
	return true
}
