package consoleout

import (
	"bytes"
	"fmt"
	"testing"
)

// TestName ensures we can lookup a driver by name
func TestName(t *testing.T) {

	valid := []string{"ansi", "cp437"}

	for _, nm := range valid {

		d, e := New(nm)
		if e != nil {
			t.Fatalf("failed to lookup driver by name %s:%s", nm, e)
		}
		if d.GetName() != nm {
			t.Fatalf("%s != %s", d.GetName(), nm)
		}
		if d.GetDriver().GetName() != nm {
			t.Fatalf("%s != %s", d.GetDriver().GetName(), nm)
		}
	}

	// Lookup a driver that wont exist
	_, err := New("foo.bar.ba")
	if err == nil {
		t.Fatalf("we got a driver that shouldn't exist")
	}
}

// TestChangeDriver ensures we can change a driver
func TestChangeDriver(t *testing.T) {

	ansi, err := New("ansi")
	if err != nil {
		t.Fatalf("failed to load starting driver %s", err)
	}

	err = ansi.ChangeDriver("CP437")
	if err != nil {
		t.Fatalf("failed to change to new driver %s", err)
	}
	if ansi.GetName() != "cp437" {
		t.Fatalf("driver change didnt work?")
	}

	err = ansi.ChangeDriver("fofdsf-fsdfsd-fsdfdsf-")
	if err == nil {
		t.Fatalf("expected failure to change to new driver, didn't happen")
	}
	if ansi.GetName() != "cp437" {
		t.Fatalf("driver changed unexpectedly")
	}
}

// TestOutput ensures that our two "real" drivers output, as expected
func TestOutput(t *testing.T) {

	for _, nm := range []string{"ansi", "cp437"} {

		d, e := New(nm)
		if e != nil {
			t.Fatalf("failed to lookup driver by name %s:%s", nm, e)
		}

		tmp := new(bytes.Buffer)
		d.SetWriter(tmp)

		fmt.Fprintf(d, "C:\\>DIR\r\n\x1b[0m")

		if tmp.String() != "C:\\>DIR\r\n\x1b[0m" {
			t.Fatalf("output driver %s produced '%s'", d.GetName(), tmp.String())
		}
	}
}

// TestCodepage ensures high characters are translated.
func TestCodepage(t *testing.T) {

	d, _ := New("cp437")
	tmp := new(bytes.Buffer)
	d.SetWriter(tmp)

	// e-acute, a box corner, and the pi symbol
	for _, c := range []byte{0x82, 0xC9, 0xE3} {
		d.PutCharacter(c)
	}
	if tmp.String() != "é╔π" {
		t.Fatalf("unexpected translation %q", tmp.String())
	}

	// The raw driver does not translate
	a, _ := New("ansi")
	tmp.Reset()
	a.SetWriter(tmp)
	a.PutCharacter(0x82)
	if !bytes.Equal(tmp.Bytes(), []byte{0x82}) {
		t.Fatalf("unexpected output %q", tmp.String())
	}
}

// TestNull ensures nothing is written by the null output driver
func TestNull(t *testing.T) {

	null, err := New("null")
	if err != nil {
		t.Fatalf("failed to load starting driver %s", err)
	}
	if null.GetName() != "null" {
		t.Fatalf("null driver has the wrong name")
	}

	tmp := new(bytes.Buffer)
	null.SetWriter(tmp)
	null.PutCharacter('s')

	if tmp.String() != "" {
		t.Fatalf("got output, expected none: '%s'", tmp.String())
	}
}

// TestLogger ensures nothing is written by the logging output driver
func TestLogger(t *testing.T) {

	drv, err := New("logger")
	if err != nil {
		t.Fatalf("failed to load starting driver %s", err)
	}

	tmp := new(bytes.Buffer)
	drv.SetWriter(tmp)

	fmt.Fprintf(drv, "steve")

	if tmp.String() != "" {
		t.Fatalf("got output, expected none: '%s'", tmp.String())
	}

	o, ok := drv.GetDriver().(ConsoleRecorder)
	if !ok {
		t.Fatalf("failed to cast driver")
	}
	if o.GetOutput() != "steve" {
		t.Fatalf("wrong history")
	}

	drv.PutCharacter(' ')
	if o.GetOutput() != "steve " {
		t.Fatalf("wrong history")
	}

	o.Reset()
	if o.GetOutput() != "" {
		t.Fatalf("reseting the history didn't succeed")
	}
}

// TestList ensures that we have the right drivers
func TestList(t *testing.T) {
	x, _ := New("null")

	valid := x.GetDrivers()

	if len(valid) != 2 || valid[0] != "ansi" || valid[1] != "cp437" {
		t.Fatalf("unexpected console drivers %v", valid)
	}
}
