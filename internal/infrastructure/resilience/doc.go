/*
Package resilience provides a circuit breaker for remote fetches.

# Overview

The page loader fetches external scripts from arbitrary origins. A Group
keeps one Breaker per origin so a dead host fails fast instead of costing a
full timeout and retry cycle for every script that references it.

# Usage

	breakers := resilience.NewGroup(resilience.Settings{
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
	})

	err := breakers.Get(u.Host).Do(func() error {
		return fetch(u)
	})

# States

	Closed --[threshold failures]-> Open --[cooldown]-> Half-Open --[success]-> Closed
	                                                       |
	                                                   [failure]
	                                                       v
	                                                     Open
*/
package resilience
