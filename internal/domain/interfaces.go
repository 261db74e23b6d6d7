package domain

// StreamClient is the lifecycle surface of a market-data stream.
type StreamClient interface {
	Connect()
	Disconnect()
	IsConnected() bool
}

// SnapshotRepository persists the latest instrument snapshots.
type SnapshotRepository interface {
	SaveSnapshots(snapshots []InstrumentSnapshot) error
	GetSnapshot(token uint32) (*InstrumentSnapshot, error)
}

// SubscriptionRepository persists which tokens the stream should carry.
type SubscriptionRepository interface {
	SaveSubscriptions(subs map[uint32]Mode) error
	LoadSubscriptions() (map[uint32]Mode, error)
}
