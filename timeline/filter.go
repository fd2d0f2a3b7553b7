package timeline

// Control side. Each setter is a single atomic store; readers on the
// real-time goroutine may see a change up to one period late.

// Solo restricts audible output to channel ch, replacing any previous solo.
func (r *Root) Solo(ch int) error {
	if !validChannel(ch) {
		return ErrInvalidChannel
	}
	r.solo.Store(int32(ch))
	return nil
}

// Unsolo clears the solo channel.
func (r *Root) Unsolo() {
	r.solo.Store(NoSolo)
}

// SoloChannel returns the soloed channel (0-15), or NoSolo.
func (r *Root) SoloChannel() int {
	return int(r.solo.Load())
}

// Mute silences channel ch.
func (r *Root) Mute(ch int) error {
	if !validChannel(ch) {
		return ErrInvalidChannel
	}
	r.channels[ch].muted.Store(true)
	return nil
}

// Unmute re-enables channel ch.
func (r *Root) Unmute(ch int) error {
	if !validChannel(ch) {
		return ErrInvalidChannel
	}
	r.channels[ch].muted.Store(false)
	return nil
}

// ChannelMuted reports whether ch is muted. Invalid channels report false.
func (r *Root) ChannelMuted(ch int) bool {
	if !validChannel(ch) {
		return false
	}
	return r.channels[ch].muted.Load()
}

// SendSysex reports whether system exclusive messages are played.
func (r *Root) SendSysex() bool {
	return r.sendSysex.Load()
}

// SetSendSysex enables or disables system exclusive output.
func (r *Root) SetSendSysex(enabled bool) {
	r.sendSysex.Store(enabled)
}

// Real-time side.

// ChannelAudible applies the mute/solo rule to channel ch: with a solo
// channel set only that channel sounds, regardless of mute flags; otherwise
// every unmuted channel sounds.
func (r *Root) ChannelAudible(ch int) bool {
	if !validChannel(ch) {
		return false
	}
	solo := r.solo.Load()
	if solo != NoSolo {
		return solo == int32(ch)
	}
	return !r.channels[ch].muted.Load()
}

// Audible reports whether ev should be sent. Sysex is gated by SendSysex.
// Other system messages carry no channel and always pass.
func (r *Root) Audible(ev *Event) bool {
	if ev.IsSysEx() {
		return r.sendSysex.Load()
	}
	ch := ev.Channel()
	if ch < 0 {
		return true
	}
	return r.ChannelAudible(ch)
}
