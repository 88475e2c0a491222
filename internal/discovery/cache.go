package discovery

import "reflect"

// Category names one slot of the discovery cache.
type Category string

const (
	CategoryManager    Category = "manager"
	CategoryManifest   Category = "manifest"
	CategoryProcess    Category = "process"
	CategoryFilesystem Category = "filesystem"
	// CategoryExternal holds the path keys classified external since the
	// last reset.
	CategoryExternal Category = "external"
)

// Cache memoizes discovery results for one console session. It is owned by
// the session driver and touched only from its goroutine; it is never
// persisted. Reset it whenever installed instances may have changed.
type Cache struct {
	slots map[Category]any
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{slots: make(map[Category]any)}
}

// Reset clears every slot.
func (c *Cache) Reset() {
	clear(c.slots)
}

// Populated reports whether cat holds a non-empty value.
func (c *Cache) Populated(cat Category) bool {
	v, ok := c.slots[cat]
	return ok && !isEmpty(v)
}

// GetOrPopulate returns the cached value for cat when useCache is set and the
// slot is non-empty. Otherwise it calls populate, stores the result and
// returns it.
func GetOrPopulate[T any](c *Cache, cat Category, useCache bool, populate func() T) T {
	if useCache {
		if v, ok := c.slots[cat]; ok && !isEmpty(v) {
			if typed, ok := v.(T); ok {
				return typed
			}
		}
	}
	v := populate()
	c.slots[cat] = v
	return v
}

// emptier lets a cached value decide for itself whether it counts as empty.
type emptier interface {
	Empty() bool
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
	}
	if e, ok := v.(emptier); ok {
		return e.Empty()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.String:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return false
	}
	return rv.IsZero()
}
