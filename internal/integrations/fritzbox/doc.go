// Package fritzbox exposes AVM FRITZ!SmartHome light bulbs as hub light
// entities.
//
// Bulbs are keyed by their AIN (actor identification number). Bulbs that
// appear in later snapshots are added while the hub runs. Bulbs without
// full colour support, such as the FRITZ!DECT 500, only accept a fixed set
// of hue/saturation pairs; requested colours are snapped to the nearest
// supported pair.
package fritzbox
