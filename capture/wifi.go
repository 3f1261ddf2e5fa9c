package capture

import "fmt"

// channelFrequencyMHz maps 20 MHz channel numbers to carrier frequencies in
// the 2.4 and 5 GHz bands. Channel 14 is Japan-only.
var channelFrequencyMHz = map[int]int{
	1: 2412, 2: 2417, 3: 2422, 4: 2427, 5: 2432, 6: 2437, 7: 2442,
	8: 2447, 9: 2452, 10: 2457, 11: 2462, 12: 2467, 13: 2472, 14: 2484,

	36: 5180, 40: 5200, 44: 5220, 48: 5240, 52: 5260, 56: 5280,
	60: 5300, 64: 5320, 100: 5500, 104: 5520, 108: 5540, 112: 5560,
	116: 5580, 120: 5600, 124: 5620, 128: 5640, 132: 5660, 136: 5680,
	140: 5700, 144: 5720, 149: 5745, 153: 5765, 157: 5785, 161: 5805,
	165: 5825,
}

var frequencyChannel = func() map[int]int {
	m := make(map[int]int, len(channelFrequencyMHz))
	for ch, freq := range channelFrequencyMHz {
		m[freq] = ch
	}
	return m
}()

// ChannelToFrequencyMHz returns the carrier frequency of a 20 MHz channel.
func ChannelToFrequencyMHz(channel int) (int, error) {
	freq, ok := channelFrequencyMHz[channel]
	if !ok {
		return 0, fmt.Errorf("channel %d is not a recognized 20 MHz channel", channel)
	}
	return freq, nil
}

// FrequencyToChannel returns the channel number for a 20 MHz carrier
// frequency in MHz.
func FrequencyToChannel(freqMHz int) (int, error) {
	ch, ok := frequencyChannel[freqMHz]
	if !ok {
		return 0, fmt.Errorf("frequency %d MHz is not a recognized 20 MHz channel", freqMHz)
	}
	return ch, nil
}
