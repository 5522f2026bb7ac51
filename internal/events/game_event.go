// Package events implements the reliability-tagged game event catalogue
// and the per-connection event queue used to schedule and retire them.
package events

// EventKind discriminates the GameEvent payload union.
type EventKind uint8

const (
	EventPlayerKill EventKind = iota
	EventPlayerDeath
	EventPlayerRespawn
	EventDamageDealt
	EventProjectileFired
	EventProjectileHit
	EventItemPickup
	EventItemDrop
	EventChatMessage
	EventVoiceData
	EventGameStateChange
	EventRoundStart
	EventRoundEnd
	EventScoreUpdate
)

// GameEvent is a flat field bag holding every event variant; only the
// fields relevant to Kind are meaningful for a given value. msgpack tags
// keep the wire encoding compact (map keys, omitted zero values would
// still round-trip correctly since every field has an explicit tag).
type GameEvent struct {
	Kind EventKind `msgpack:"k"`

	KillerID uint32 `msgpack:"killer_id,omitempty"`
	VictimID uint32 `msgpack:"victim_id,omitempty"`
	WeaponID uint8  `msgpack:"weapon_id,omitempty"`

	PlayerID uint32 `msgpack:"player_id,omitempty"`

	AttackerID uint32 `msgpack:"attacker_id,omitempty"`
	TargetID   uint32 `msgpack:"target_id,omitempty"`
	Damage     uint16 `msgpack:"damage,omitempty"`
	Hitbox     uint8  `msgpack:"hitbox,omitempty"`

	OwnerID      uint32 `msgpack:"owner_id,omitempty"`
	ProjectileID uint32 `msgpack:"projectile_id,omitempty"`

	HasHitEntity bool   `msgpack:"has_hit_entity,omitempty"`
	HitEntityID  uint32 `msgpack:"hit_entity_id,omitempty"`

	Position [3]float32 `msgpack:"position,omitempty"`

	ItemID   uint32 `msgpack:"item_id,omitempty"`
	ItemType uint8  `msgpack:"item_type,omitempty"`

	SenderID uint32 `msgpack:"sender_id,omitempty"`
	Channel  uint8  `msgpack:"channel,omitempty"`
	Message  string `msgpack:"message,omitempty"`

	VoiceData []byte `msgpack:"voice_data,omitempty"`

	NewState uint8 `msgpack:"new_state,omitempty"`

	RoundNumber uint16 `msgpack:"round_number,omitempty"`
	WinningTeam uint8  `msgpack:"winning_team,omitempty"`

	TeamScores [2]uint16 `msgpack:"team_scores,omitempty"`
}

func PlayerKill(killerID, victimID uint32, weaponID uint8) GameEvent {
	return GameEvent{Kind: EventPlayerKill, KillerID: killerID, VictimID: victimID, WeaponID: weaponID}
}

func PlayerDeath(playerID uint32) GameEvent {
	return GameEvent{Kind: EventPlayerDeath, PlayerID: playerID}
}

func PlayerRespawn(playerID uint32, position [3]float32) GameEvent {
	return GameEvent{Kind: EventPlayerRespawn, PlayerID: playerID, Position: position}
}

func DamageDealt(attackerID, targetID uint32, damage uint16, hitbox uint8) GameEvent {
	return GameEvent{Kind: EventDamageDealt, AttackerID: attackerID, TargetID: targetID, Damage: damage, Hitbox: hitbox}
}

func ProjectileFired(ownerID, projectileID uint32, weaponID uint8) GameEvent {
	return GameEvent{Kind: EventProjectileFired, OwnerID: ownerID, ProjectileID: projectileID, WeaponID: weaponID}
}

func ProjectileHit(projectileID uint32, hitEntityID uint32, hasHitEntity bool, position [3]float32) GameEvent {
	return GameEvent{Kind: EventProjectileHit, ProjectileID: projectileID, HitEntityID: hitEntityID, HasHitEntity: hasHitEntity, Position: position}
}

func ItemPickup(playerID, itemID uint32, itemType uint8) GameEvent {
	return GameEvent{Kind: EventItemPickup, PlayerID: playerID, ItemID: itemID, ItemType: itemType}
}

func ItemDrop(playerID, itemID uint32, position [3]float32) GameEvent {
	return GameEvent{Kind: EventItemDrop, PlayerID: playerID, ItemID: itemID, Position: position}
}

func ChatMessage(senderID uint32, channel uint8, message string) GameEvent {
	return GameEvent{Kind: EventChatMessage, SenderID: senderID, Channel: channel, Message: message}
}

func VoiceData(senderID uint32, data []byte) GameEvent {
	return GameEvent{Kind: EventVoiceData, SenderID: senderID, VoiceData: data}
}

func GameStateChange(newState uint8) GameEvent {
	return GameEvent{Kind: EventGameStateChange, NewState: newState}
}

func RoundStart(roundNumber uint16) GameEvent {
	return GameEvent{Kind: EventRoundStart, RoundNumber: roundNumber}
}

func RoundEnd(winningTeam uint8) GameEvent {
	return GameEvent{Kind: EventRoundEnd, WinningTeam: winningTeam}
}

func ScoreUpdate(teamScores [2]uint16) GameEvent {
	return GameEvent{Kind: EventScoreUpdate, TeamScores: teamScores}
}

// ReliabilityKind is the delivery discipline a GameEvent is scheduled
// under.
type ReliabilityKind uint8

const (
	ReliabilityUnreliable ReliabilityKind = iota
	ReliabilityUnreliableExpiring
	ReliabilityReliable
)

type ReliabilityMode struct {
	Kind    ReliabilityKind
	TTLMillis uint64 // only meaningful when Kind == ReliabilityUnreliableExpiring
}

func (m ReliabilityMode) IsReliable() bool { return m.Kind == ReliabilityReliable }

// Reliability returns the delivery discipline for an event's kind,
// grounded directly on the original catalogue's per-variant assignment.
func (e GameEvent) Reliability() ReliabilityMode {
	switch e.Kind {
	case EventChatMessage, EventGameStateChange, EventRoundStart, EventRoundEnd,
		EventScoreUpdate, EventPlayerRespawn:
		return ReliabilityMode{Kind: ReliabilityReliable}

	case EventPlayerKill:
		return ReliabilityMode{Kind: ReliabilityUnreliableExpiring, TTLMillis: 10_000}
	case EventPlayerDeath, EventItemPickup, EventItemDrop:
		return ReliabilityMode{Kind: ReliabilityUnreliableExpiring, TTLMillis: 5_000}

	case EventDamageDealt, EventProjectileFired, EventProjectileHit, EventVoiceData:
		return ReliabilityMode{Kind: ReliabilityUnreliable}

	default:
		return ReliabilityMode{Kind: ReliabilityUnreliable}
	}
}

// IsTransient marks events that are never worth retransmitting or
// logging for replay purposes (high frequency, no lasting game-state
// impact on their own).
func (e GameEvent) IsTransient() bool {
	switch e.Kind {
	case EventVoiceData, EventDamageDealt, EventProjectileFired:
		return true
	default:
		return false
	}
}
