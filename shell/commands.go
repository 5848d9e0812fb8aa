package shell

import (
	"strings"

	"github.com/skx/dosfs/doserr"
	"github.com/skx/dosfs/dosname"
	"github.com/skx/dosfs/drive"
	"github.com/skx/dosfs/fcb"
	"github.com/skx/dosfs/mcb"
	"github.com/skx/dosfs/version"
)

// The offsets of the two FCBs within our PSP, which DEL and REN parse
// their arguments into.
const (
	fcb1 = 0x5C
	fcb2 = 0x6C
)

// copyBuffer is the size of the chunks COPY and TYPE move.
const copyBuffer = 4096

// commands returns the table of built-in commands.
func commands() map[string]Command {
	cmds := make(map[string]Command)

	cmds["CD"] = Command{Desc: "Displays or changes the current directory", Handler: cdCommand}
	cmds["CHDIR"] = cmds["CD"]
	cmds["COPY"] = Command{Desc: "Copies a file", Handler: copyCommand}
	cmds["DEL"] = Command{Desc: "Deletes files", Handler: delCommand}
	cmds["ERASE"] = cmds["DEL"]
	cmds["DIR"] = Command{Desc: "Lists the files in a directory", Handler: dirCommand}
	cmds["ECHO"] = Command{Desc: "Displays a message", Handler: echoCommand}
	cmds["EXIT"] = Command{Desc: "Exits the shell", Handler: exitCommand}
	cmds["HELP"] = Command{Desc: "Lists the built-in commands", Handler: helpCommand}
	cmds["MD"] = Command{Desc: "Creates a directory", Handler: mdCommand}
	cmds["MKDIR"] = cmds["MD"]
	cmds["MEM"] = Command{Desc: "Shows the memory control blocks", Handler: memCommand}
	cmds["RD"] = Command{Desc: "Removes a directory", Handler: rdCommand}
	cmds["RMDIR"] = cmds["RD"]
	cmds["REN"] = Command{Desc: "Renames a file", Handler: renCommand}
	cmds["RENAME"] = cmds["REN"]
	cmds["RESCAN"] = Command{Desc: "Rereads the directories of every drive from the host", Handler: rescanCommand}
	cmds["TRUENAME"] = Command{Desc: "Shows the fully qualified name of a file", Handler: truenameCommand}
	cmds["TYPE"] = Command{Desc: "Displays the contents of a file", Handler: typeCommand}
	cmds["VER"] = Command{Desc: "Shows the version", Handler: verCommand}
	cmds["VOL"] = Command{Desc: "Shows the volume label of a drive", Handler: volCommand}

	return cmds
}

// missing reports whether there are too few arguments.
func missing(args []string, n int) bool {
	return len(args) < n
}

// syntax is shown when a command is missing arguments.
func (s *Shell) syntax() error {
	s.printf("Required parameter missing\n")
	return nil
}

// driveOf returns the index of the drive a name refers to.
func (s *Shell) driveOf(name string) uint8 {
	if len(name) >= 2 && name[1] == ':' {
		return (name[0] | 0x20) - 'a'
	}
	return s.kernel.GetDefaultDrive()
}

func cdCommand(s *Shell, args []string) error {
	if len(args) == 0 || (len(args[0]) == 2 && args[0][1] == ':') {
		idx := s.kernel.GetDefaultDrive()
		if len(args) > 0 {
			idx = s.driveOf(args[0])
		}
		dir, err := s.kernel.GetCurrentDir(idx + 1)
		if err != nil {
			return err
		}
		s.printf("%c:\\%s\n", 'A'+idx, dir)
		return nil
	}
	return s.kernel.ChangeDir(args[0])
}

func mdCommand(s *Shell, args []string) error {
	if missing(args, 1) {
		return s.syntax()
	}
	return s.kernel.MakeDir(args[0])
}

func rdCommand(s *Shell, args []string) error {
	if missing(args, 1) {
		return s.syntax()
	}
	return s.kernel.RemoveDir(args[0])
}

func echoCommand(s *Shell, args []string) error {
	text := ""
	if len(args) > 0 {
		text = args[0]
	}
	// "ECHO." shows an empty line
	text = strings.TrimPrefix(text, ".")
	s.printf("%s\n", text)
	return nil
}

func exitCommand(s *Shell, args []string) error {
	return ErrExit
}

func helpCommand(s *Shell, args []string) error {
	for _, name := range s.Names() {
		s.printf("%-9s %s\n", name, s.Commands[name].Desc)
	}
	return nil
}

func verCommand(s *Shell, args []string) error {
	s.printf("\n%s\n", strings.TrimSpace(version.GetVersionBanner()))
	return nil
}

func rescanCommand(s *Shell, args []string) error {
	s.kernel.Rescan()
	return nil
}

func truenameCommand(s *Shell, args []string) error {
	if missing(args, 1) {
		return s.syntax()
	}
	name, err := s.kernel.Canonicalize(args[0])
	if err != nil {
		return err
	}
	s.printf("%s\n", name)
	return nil
}

func volCommand(s *Shell, args []string) error {
	idx := s.kernel.GetDefaultDrive()
	if len(args) > 0 {
		idx = s.driveOf(args[0])
	}
	d := s.kernel.Drive(idx)
	if d == nil {
		return doserr.InvalidDrive
	}
	if label := d.Label(); label != "" {
		s.printf(" Volume in drive %c is %s\n", 'A'+idx, label)
	} else {
		s.printf(" Volume in drive %c has no label\n", 'A'+idx)
	}
	return nil
}

// dirPattern returns the pattern DIR should search for.  A directory
// lists its contents.
func (s *Shell) dirPattern(args []string) string {
	if len(args) == 0 {
		return "*.*"
	}
	pattern := args[0]
	if strings.HasSuffix(pattern, "\\") || strings.HasSuffix(pattern, ":") {
		return pattern + "*.*"
	}
	if attr, err := s.kernel.GetFileAttr(pattern); err == nil && attr&drive.AttrDirectory != 0 {
		return pattern + "\\*.*"
	}
	if !strings.Contains(dosname.BaseName(pattern), ".") {
		return pattern + ".*"
	}
	return pattern
}

func dirCommand(s *Shell, args []string) error {
	pattern := s.dirPattern(args)

	full, err := s.kernel.Canonicalize(pattern)
	if err != nil {
		return err
	}
	dir := full[:strings.LastIndexByte(full, '\\')]
	if len(dir) == 2 {
		dir += "\\"
	}

	if err = volCommand(s, []string{pattern}); err != nil {
		return err
	}
	s.printf(" Directory of %s\n\n", dir)

	files, dirs := 0, 0
	var bytes uint64

	err = s.kernel.FindFirst(pattern, drive.AttrDirectory)
	for err == nil {
		r := s.kernel.FindResult()
		base, ext := dosname.Split83(r.Name)
		if r.Name == "." || r.Name == ".." {
			base, ext = dosname.Split83("")
			copy(base[:], r.Name)
		}

		when := dosname.ToTime(r.Date, r.Time).Format("01-02-2006 15:04")

		if r.Attr&drive.AttrDirectory != 0 {
			dirs++
			s.printf("%s %s %-14s %s\n", base, ext, "<DIR>", when)
		} else {
			files++
			bytes += uint64(r.Size)
			s.printf("%s %s %14d %s\n", base, ext, r.Size, when)
		}
		err = s.kernel.FindNext()
	}
	if doserr.As(err) != doserr.NoMoreFiles {
		return err
	}
	if files+dirs == 0 {
		s.printf("File not found\n")
		return nil
	}

	s.printf("%16d File(s) %17d Bytes.\n", files, bytes)

	a, err := s.kernel.GetFreeDiskSpace(s.driveOf(pattern) + 1)
	if err != nil {
		return err
	}
	free := uint64(a.FreeClusters) * uint64(a.SectorsPerCluster) * uint64(a.BytesPerSector)
	s.printf("%16d Dir(s)  %17d Bytes free.\n", dirs, free)
	return nil
}

func typeCommand(s *Shell, args []string) error {
	if missing(args, 1) {
		return s.syntax()
	}

	h, err := s.kernel.OpenFile(args[0], drive.OpenRead)
	if err != nil {
		return err
	}
	defer s.kernel.CloseFile(h)

	buf := make([]byte, copyBuffer)
	for {
		n, err := s.kernel.ReadFile(h, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		data := buf[:n]

		// Ctrl-Z is the end of a text file
		if i := strings.IndexByte(string(data), 0x1A); i >= 0 {
			s.out.Write(data[:i])
			break
		}
		s.out.Write(data)
	}
	s.printf("\n")
	return nil
}

func copyCommand(s *Shell, args []string) error {
	if missing(args, 2) {
		return s.syntax()
	}
	src, dst := args[0], args[1]

	// Copying into a directory keeps the name
	if strings.HasSuffix(dst, "\\") || strings.HasSuffix(dst, ":") {
		dst += dosname.BaseName(src)
	} else if attr, err := s.kernel.GetFileAttr(dst); err == nil && attr&drive.AttrDirectory != 0 {
		dst += "\\" + dosname.BaseName(src)
	}

	srcName, err := s.kernel.Canonicalize(src)
	if err != nil {
		return err
	}
	dstName, err := s.kernel.Canonicalize(dst)
	if err != nil {
		return err
	}
	if srcName == dstName {
		s.printf("File cannot be copied onto itself\n")
		return nil
	}

	in, err := s.kernel.OpenFile(src, drive.OpenRead)
	if err != nil {
		return err
	}
	defer s.kernel.CloseFile(in)

	out, err := s.kernel.CreateFile(dst, drive.AttrArchive)
	if err != nil {
		return err
	}
	defer s.kernel.CloseFile(out)

	buf := make([]byte, copyBuffer)
	for {
		n, err := s.kernel.ReadFile(in, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		if _, err = s.kernel.WriteFile(out, buf[:n]); err != nil {
			return err
		}
	}

	s.printf("        1 file(s) copied.\n")
	return nil
}

// parseFCB parses a name into one of the FCBs of our PSP.
func (s *Shell) parseFCB(off uint16, name string) error {
	_, ret := s.kernel.FCBParseName(s.kernel.PSP(), off, 0, []byte(name+"\x00"))
	if ret == fcb.ParseBadDrive {
		return doserr.InvalidDrive
	}
	return nil
}

func delCommand(s *Shell, args []string) error {
	if missing(args, 1) {
		return s.syntax()
	}
	name := args[0]

	// FCBs can't hold a directory, so paths are removed by handle.
	if strings.Contains(name, "\\") {
		return s.delPath(name)
	}

	if err := s.parseFCB(fcb1, name); err != nil {
		return err
	}
	return s.kernel.FCBDeleteFile(s.kernel.PSP(), fcb1)
}

// delPath removes the files matching a pattern which includes a path.
func (s *Shell) delPath(pattern string) error {
	dir := pattern[:strings.LastIndexByte(pattern, '\\')+1]

	var names []string
	err := s.kernel.FindFirst(pattern, drive.AttrArchive)
	for err == nil {
		names = append(names, dir+s.kernel.FindResult().Name)
		err = s.kernel.FindNext()
	}
	if len(names) == 0 {
		return doserr.FileNotFound
	}
	for _, name := range names {
		if err = s.kernel.UnlinkFile(name); err != nil {
			return err
		}
	}
	return nil
}

func renCommand(s *Shell, args []string) error {
	if missing(args, 2) {
		return s.syntax()
	}
	if strings.Contains(args[1], "\\") || strings.Contains(args[1], ":") {
		s.printf("Invalid parameter\n")
		return nil
	}

	// Paths need the handle function, the FCB one works in the
	// current directory.
	if strings.Contains(args[0], "\\") {
		dir := args[0][:strings.LastIndexByte(args[0], '\\')+1]
		return s.kernel.Rename(args[0], dir+args[1])
	}

	if err := s.parseFCB(fcb1, args[0]); err != nil {
		return err
	}
	if err := s.parseFCB(fcb2, args[1]); err != nil {
		return err
	}
	return s.kernel.FCBRenameFile(s.kernel.PSP(), fcb1)
}

// memType describes the type of a memory block.
func memType(b mcb.Block) string {
	switch {
	case b.PSP == mcb.Free:
		return "free"
	case b.PSP == b.Segment+1:
		return "program"
	default:
		return "data"
	}
}

func memCommand(s *Shell, args []string) error {
	blocks, err := s.kernel.Arena.Blocks()
	if err != nil {
		return err
	}

	s.printf("Segment  Size       Owner  Name      Type\n")
	s.printf("-------  ---------  -----  --------  -------\n")

	var free uint32
	largest := uint16(0)
	for _, b := range blocks {
		s.printf("%04X     %9d  %04X   %-8s  %s\n", b.Segment, uint32(b.Size)*16, b.PSP, b.Name, memType(b))
		if b.PSP == mcb.Free && b.Segment < 0xA000 {
			free += uint32(b.Size) * 16
			if b.Size > largest {
				largest = b.Size
			}
		}
	}

	s.printf("\n%9d bytes free conventional memory\n", free)
	s.printf("%9d bytes largest free block\n", uint32(largest)*16)
	return nil
}
