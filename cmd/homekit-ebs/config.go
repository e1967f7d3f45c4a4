package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/brutella/hap/characteristic"
	ebs "github.com/caarlos0/homekit-ebs"
	"golang.org/x/exp/slices"
)

type Config struct {
	Server          string        `env:"SERVER,notEmpty"`
	Email           string        `env:"EMAIL,notEmpty"`
	Pin             string        `env:"PIN,notEmpty"`
	AwayPartitions  []int         `env:"AWAY"          envDefault:"1"`
	StayPartitions  []int         `env:"STAY"`
	NightPartitions []int         `env:"NIGHT"`
	Switches        []int         `env:"SWITCHES"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"10s"`
	Address         string        `env:"LISTEN"        envDefault:":9009"`
	DB              string        `env:"DB"            envDefault:"./db"`
	Debug           bool          `env:"DEBUG"`
}

type armMode struct {
	name       string
	partitions []int
	state      ebs.State
	current    int
	target     int
}

func (m armMode) String() string {
	return fmt.Sprintf("%s: %v", m.name, m.partitions)
}

// modes in order of precedence when deciding the current state.
func (c Config) modes() []armMode {
	return []armMode{
		{
			name:       "night",
			partitions: sorted(c.NightPartitions),
			state:      ebs.StateNight,
			current:    characteristic.SecuritySystemCurrentStateNightArm,
			target:     characteristic.SecuritySystemTargetStateNightArm,
		},
		{
			name:       "stay",
			partitions: sorted(c.StayPartitions),
			state:      ebs.StatePartial,
			current:    characteristic.SecuritySystemCurrentStateStayArm,
			target:     characteristic.SecuritySystemTargetStateStayArm,
		},
		{
			name:       "away",
			partitions: sorted(c.AwayPartitions),
			state:      ebs.StateArmed,
			current:    characteristic.SecuritySystemCurrentStateAwayArm,
			target:     characteristic.SecuritySystemTargetStateAwayArm,
		},
	}
}

func (c Config) modesString() string {
	var lines []string
	for _, m := range c.modes() {
		lines = append(lines, m.String())
	}
	return strings.Join(lines, "\n")
}

func (c Config) modeFor(target int) (armMode, bool) {
	for _, m := range c.modes() {
		if m.target == target {
			return m, len(m.partitions) > 0
		}
	}
	return armMode{}, false
}

// allPartitions are all partitions driven by the security system.
func (c Config) allPartitions() []int {
	var all []int
	for _, m := range c.modes() {
		for _, p := range m.partitions {
			if !slices.Contains(all, p) {
				all = append(all, p)
			}
		}
	}
	return sorted(all)
}

// getAlarmState maps the partitions to a HomeKit current state, or -1 if
// the armed partitions match no configured mode.
func (c Config) getAlarmState(partitions []ebs.Partition) int {
	all := c.allPartitions()
	armed := []int{}
	states := map[int]ebs.State{}
	for _, part := range partitions {
		if !slices.Contains(all, part.Number) {
			continue
		}
		log.Debug("partition state", "part", part.Number, "state", part.State)
		states[part.Number] = part.State
		if part.State.Armed() {
			armed = append(armed, part.Number)
		}
	}
	armed = sorted(armed)

	if len(armed) == 0 {
		return characteristic.SecuritySystemCurrentStateDisarmed
	}

	// the same partitions may be used by more than one mode, the vendor
	// state breaks the tie.
	for _, m := range c.modes() {
		if len(m.partitions) == 0 || !slices.Equal(m.partitions, armed) {
			continue
		}
		if allIn(m.partitions, states, m.state) {
			return m.current
		}
	}
	for _, m := range c.modes() {
		if len(m.partitions) > 0 && slices.Equal(m.partitions, armed) {
			return m.current
		}
	}

	return -1
}

func allIn(partitions []int, states map[int]ebs.State, state ebs.State) bool {
	for _, p := range partitions {
		if states[p] != state {
			return false
		}
	}
	return true
}

func sorted(in []int) []int {
	out := slices.Clone(in)
	slices.Sort(out)
	return out
}
