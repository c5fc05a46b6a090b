package providers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrProviderNotFound 注册表中没有该名称的提供商
var ErrProviderNotFound = errors.New("provider not found")

// Registry 按名称缓存已创建的提供商实例，名称不区分大小写
type Registry struct {
	mu        sync.Mutex
	providers map[string]Provider
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func registryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register 注册提供商，名称重复时返回错误
func (r *Registry) Register(name string, p Provider) error {
	if p == nil {
		return fmt.Errorf("register %q: nil provider", name)
	}
	key := registryKey(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[key]; ok {
		return fmt.Errorf("provider %s already registered", key)
	}
	r.providers[key] = p
	return nil
}

// Get 按名称查找提供商
func (r *Registry) Get(name string) (Provider, error) {
	key := registryKey(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[key]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, key)
}

// GetOrCreate 返回已注册的实例，不存在时调用 create 创建并注册
//
// create 在持锁状态下执行，同一名称并发调用只会创建一次。创建失败不会注册。
func (r *Registry) GetOrCreate(name string, create func() (Provider, error)) (Provider, error) {
	key := registryKey(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[key]; ok {
		return p, nil
	}

	p, err := create()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("create %q: nil provider", key)
	}
	r.providers[key] = p
	return p, nil
}

// Names 按名称排序返回已注册的提供商
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove 移除提供商，下次 GetOrCreate 时重新创建
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, registryKey(name))
}
