package metrics

const (
	EngineTicksH = "The total number of simulated-minute ticks processed"
	EngineTicksN = "gametime_engine_ticks"

	EngineEventsH = "The total number of boundary events emitted, by kind"
	EngineEventsN = "gametime_engine_events"

	EngineManualSetsH = "The total number of manual time adjustments"
	EngineManualSetsN = "gametime_engine_manual_sets"

	CooldownsActiveH = "The number of cooldown entries currently stored"
	CooldownsActiveN = "gametime_cooldowns_active"

	TimezoneWorldsH = "The number of worlds with an explicit timezone configuration"
	TimezoneWorldsN = "gametime_timezone_worlds"
)
