package executor

import "testing"

func TestMediumString(t *testing.T) {
	cases := map[Medium]string{
		MediumSSD:       "ssd",
		MediumRotating:  "rotating",
		MediumNetwork:   "network",
		MediumRemovable: "removable",
		MediumUnknown:   "unknown",
	}
	for m, want := range cases {
		if got := m.String(); got != want {
			t.Errorf("Medium(%d).String() = %q, want %q", m, got, want)
		}
	}
}

func TestIoDegreeForDefaults(t *testing.T) {
	cases := map[Medium]int{
		MediumSSD:       8,
		MediumRotating:  2,
		MediumNetwork:   4,
		MediumRemovable: 2,
		MediumUnknown:   8,
	}
	for m, want := range cases {
		if got := ioDegreeFor(m); got != want {
			t.Errorf("ioDegreeFor(%v) = %d, want %d", m, got, want)
		}
	}
}

func TestMediumClassifierCaches(t *testing.T) {
	c := NewMediumClassifier()
	c.cache["/preset"] = MediumNetwork

	if got := c.Classify("/preset"); got != MediumNetwork {
		t.Errorf("Classify() = %v, want MediumNetwork (from cache)", got)
	}
}

func TestIsRemovableMount(t *testing.T) {
	cases := map[string]bool{
		"/media/user/usb": true,
		"/run/media/x":     true,
		"/mnt/external":    true,
		"/home":            false,
		"/":                false,
	}
	for mp, want := range cases {
		if got := isRemovableMount(mp); got != want {
			t.Errorf("isRemovableMount(%q) = %v, want %v", mp, got, want)
		}
	}
}

func TestStripPartitionSuffix(t *testing.T) {
	cases := map[string]string{
		"sda1":      "sda",
		"sda":       "sda",
		"nvme0n1p2": "nvme0n1",
		"nvme0n1":   "nvme0n1",
		"":          "",
	}
	for in, want := range cases {
		if got := stripPartitionSuffix(in); got != want {
			t.Errorf("stripPartitionSuffix(%q) = %q, want %q", in, got, want)
		}
	}
}
