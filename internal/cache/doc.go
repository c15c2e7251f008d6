// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cache provides a bounded LRU cache for GPU objects.
//
// Values are created on demand with a fallible constructor and handed to an
// eviction callback when they fall out of the cache or the cache is
// cleared, so the owner can destroy the backing GPU resource.
//
//	c := cache.New[pipelineKey, hal.RenderPipeline](64,
//	    cache.WithOnEvict(func(_ pipelineKey, p hal.RenderPipeline) {
//	        device.DestroyRenderPipeline(p)
//	    }))
//	p, err := c.GetOrCreate(key, build)
//
// Cache is safe for concurrent use and must not be copied.
package cache
