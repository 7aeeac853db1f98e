/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for window
contexts, the window manager, the page script loader and the HTTP API.

# Features

- HTTP request metrics (latency, throughput, size)
- Window context lifecycle (active, created, bootstrap duration)
- Evaluations by kind and status, evaluation duration
- Retained handle gauge
- Managed windows and loaded page scripts

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Hand it to the window host
	host := sandbox.NewHost(cfg, sandbox.WithMetrics(metrics))

A nil *Metrics is accepted everywhere and records nothing.

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
