package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionConnectionOpened = "ws_connection_opened"
	ActionConnectionClosed = "ws_connection_closed"
	ActionEventDropped     = "tracking_event_dropped"
	ActionDispatch         = "tracking_dispatch"
	ActionSimulatorTick    = "simulator_tick"
	ActionMirrorPublish    = "mirror_publish"
	ActionTelemetryConsume = "telemetry_consume"
)
