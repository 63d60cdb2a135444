package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gekko3d/brickyard"
	"github.com/gekko3d/brickyard/brickrt/lattice"
	"github.com/gekko3d/brickyard/brickrt/registry"
	"github.com/go-gl/mathgl/mgl64"
)

var errQuit = errors.New("quit")

// shell drives a session from line commands:
//
//	place <type> <x> <z> [rot] [color]
//	remove <id>
//	select <x> <z>
//	mode <place|select|remove>
//	click <x> <z>
//	color [id] <color>
//	list | catalog | clear | verify | quit
type shell struct {
	session *brickyard.Session
	out     io.Writer
}

func newShell(s *brickyard.Session, out io.Writer) *shell {
	return &shell{session: s, out: out}
}

func (sh *shell) Run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		err := sh.exec(strings.Fields(line))
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
	}
	return sc.Err()
}

func (sh *shell) exec(args []string) error {
	switch strings.ToLower(args[0]) {
	case "place":
		return sh.place(args[1:])
	case "remove":
		if len(args) != 2 {
			return errors.New("usage: remove <id>")
		}
		out := sh.session.Remove(registry.BrickID(args[1]))
		if out.Err != nil {
			return out.Err
		}
		fmt.Fprintf(sh.out, "removed %s\n", out.Brick.ID)
	case "select":
		pick, err := parsePick(args[1:])
		if err != nil {
			return err
		}
		if err := sh.session.SetMode(brickyard.ModeSelect); err != nil {
			return err
		}
		out := sh.session.Click(pick)
		if out.Err != nil {
			return out.Err
		}
		sh.printBrick("selected", out.Brick)
	case "mode":
		if len(args) != 2 {
			return errors.New("usage: mode <place|select|remove>")
		}
		m, err := brickyard.ParseMode(args[1])
		if err != nil {
			return err
		}
		if err := sh.session.SetMode(m); err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "mode %s\n", m)
	case "click":
		return sh.click(args[1:])
	case "color":
		return sh.color(args[1:])
	case "list":
		for _, b := range sh.session.Bricks() {
			sh.printBrick("brick", b)
		}
	case "catalog":
		for _, t := range lattice.BrickTypes() {
			fp, _ := t.Footprint()
			fmt.Fprintf(sh.out, "%-9s %s %s\n", t, fp, t.DefaultColor())
		}
	case "clear":
		sh.session.Clear()
		fmt.Fprintln(sh.out, "cleared")
	case "verify":
		if err := sh.session.Registry().Verify(); err != nil {
			return err
		}
		fmt.Fprintln(sh.out, "ok")
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func (sh *shell) place(args []string) error {
	if len(args) < 3 || len(args) > 5 {
		return errors.New("usage: place <type> <x> <z> [rot] [color]")
	}
	t, err := lattice.ParseBrickType(args[0])
	if err != nil {
		return err
	}
	pick, err := parsePick(args[1:3])
	if err != nil {
		return err
	}
	if err := sh.session.SetBrickType(t); err != nil {
		return err
	}
	rot := 0
	if len(args) >= 4 {
		if rot, err = strconv.Atoi(args[3]); err != nil {
			return fmt.Errorf("rotation: %w", err)
		}
	}
	sh.session.SetRotation(rot)
	if len(args) == 5 {
		sh.session.SetColor(args[4])
	}
	if err := sh.session.SetMode(brickyard.ModePlace); err != nil {
		return err
	}

	out := sh.session.Click(pick)
	if out.Err != nil {
		return out.Err
	}
	sh.printBrick("placed", out.Brick)
	return nil
}

// click runs whatever the current mode does at x,z.
func (sh *shell) click(args []string) error {
	pick, err := parsePick(args)
	if err != nil {
		return err
	}
	out := sh.session.Click(pick)
	if out.Err != nil {
		return out.Err
	}
	switch out.Mode {
	case brickyard.ModeSelect:
		sh.printBrick("selected", out.Brick)
	case brickyard.ModeRemove:
		fmt.Fprintf(sh.out, "removed %s\n", out.Brick.ID)
	default:
		sh.printBrick("placed", out.Brick)
	}
	return nil
}

// color recolors brick id, or the selected brick when no id is given.
func (sh *shell) color(args []string) error {
	var (
		id  registry.BrickID
		err error
	)
	switch len(args) {
	case 1:
		sel, ok := sh.session.Selected()
		if !ok {
			return brickyard.ErrNoSelection
		}
		id = sel.ID
		err = sh.session.SetSelectedColor(args[0])
	case 2:
		id = registry.BrickID(args[0])
		err = sh.session.Recolor(id, args[1])
	default:
		return errors.New("usage: color [id] <color>")
	}
	if err != nil {
		return err
	}
	b, ok := sh.session.Registry().Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", registry.ErrNotFound, id)
	}
	sh.printBrick("colored", b)
	return nil
}

func (sh *shell) printBrick(verb string, b registry.Brick) {
	fmt.Fprintf(sh.out, "%s %s %s layer=%d rot=%d pos=(%.2f,%.2f,%.2f) %s\n",
		verb, b.ID, b.Type, b.Layer, b.QuarterTurns, b.Position.X(), b.Position.Y(), b.Position.Z(), b.Color)
}

func parsePick(args []string) (mgl64.Vec3, error) {
	if len(args) != 2 {
		return mgl64.Vec3{}, errors.New("expected <x> <z>")
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return mgl64.Vec3{}, fmt.Errorf("x: %w", err)
	}
	z, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return mgl64.Vec3{}, fmt.Errorf("z: %w", err)
	}
	return mgl64.Vec3{x, 0, z}, nil
}
