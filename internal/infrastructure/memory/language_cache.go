package memory

import "sync"

// DefaultLanguage is used for users with no detected language.
const DefaultLanguage = "en"

// LanguageCache keeps the last detected language per user, independent of
// the session record so it is available before identity verification.
type LanguageCache struct {
	mu    sync.RWMutex
	langs map[string]string
}

func NewLanguageCache() *LanguageCache {
	return &LanguageCache{langs: make(map[string]string)}
}

func (c *LanguageCache) Set(userID, lang string) {
	if lang == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.langs[userID] = lang
}

// Last returns the user's last language or DefaultLanguage.
func (c *LanguageCache) Last(userID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if l, ok := c.langs[userID]; ok {
		return l
	}
	return DefaultLanguage
}

func (c *LanguageCache) Clear(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.langs, userID)
}

// Retain drops every entry for which keep returns false and returns how many were dropped.
func (c *LanguageCache) Retain(keep func(userID string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id := range c.langs {
		if !keep(id) {
			delete(c.langs, id)
			removed++
		}
	}
	return removed
}

func (c *LanguageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.langs)
}
