// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import "github.com/beevik/cmd"

// A command describes one host command. It is stored as the data of the
// matching node in the command tree.
type command struct {
	name        string
	brief       string
	description string
	usage       string
	fn          func(*Host, selection) error
}

// A selection is a command chosen from the command tree along with the
// arguments that followed it on the command line.
type selection struct {
	Command *cmd.Command
	Args    []string
}

func lookupCommand(line string) (selection, error) {
	c, args, err := cmds.LookupCommand(line)
	if err != nil {
		return selection{}, err
	}
	return selection{Command: c, Args: args}, nil
}

// A commandGroup is either the root of the command tree (empty name) or a
// subtree of related commands.
type commandGroup struct {
	name     string
	brief    string
	commands []*command
}

// commandGroups is populated in init to avoid an initialization cycle
// through (*Host).cmdHelp.
var commandGroups []*commandGroup

func buildCommandGroups() []*commandGroup {
	return []*commandGroup{
		{
			commands: []*command{
				{
					name:        "help",
					brief:       "Display help for a command",
					description: "Display help for a command or command group.",
					usage:       "help [<command>]",
					fn:          (*Host).cmdHelp,
				},
				{
					name:  "assemble",
					brief: "Assemble instructions into memory",
					description: "Assemble a single instruction into memory at the" +
						" specified address. If no instruction is given, start" +
						" interactive assembly: instructions are read one per line" +
						" until a blank line or END is entered.",
					usage: "assemble <address> [<instruction>]",
					fn:    (*Host).cmdAssemble,
				},
				{
					name:  "execute",
					brief: "Execute for a number of cycles",
					description: "Run the CPU until at least the requested number of" +
						" cycles has elapsed, a breakpoint is hit, or an unsupported" +
						" opcode is fetched. When no cycle count is given, the" +
						" StepCycles setting is used.",
					usage: "execute [<cycles>]",
					fn:    (*Host).cmdExecute,
				},
				{
					name:  "load",
					brief: "Load a binary file",
					description: "Load the raw contents of a binary file into memory" +
						" at the specified address and point the program counter at it.",
					usage: "load <filename> <address>",
					fn:    (*Host).cmdLoad,
				},
				{
					name:        "quit",
					brief:       "Quit the program",
					description: "Quit the program.",
					usage:       "quit",
					fn:          (*Host).cmdQuit,
				},
				{
					name:  "register",
					brief: "View or change register values",
					description: "When used without arguments, this command displays the" +
						" current contents of the CPU registers. When used with" +
						" arguments, it changes the value of a register or one of the" +
						" CPU's status flags. Allowed register names include A, X, Y," +
						" PC and SP. Allowed status flag names include N, V, B, D, I, Z" +
						" and C.",
					usage: "register [<name> <value>]",
					fn:    (*Host).cmdRegister,
				},
				{
					name:  "reset",
					brief: "Reset the CPU",
					description: "Clear all registers and status flags and point the" +
						" program counter at $FFFC. Memory is left untouched.",
					usage: "reset",
					fn:    (*Host).cmdReset,
				},
				{
					name:  "set",
					brief: "Set a configuration variable",
					description: "Set the value of a configuration variable. To see the" +
						" current values of all configuration variables, type set" +
						" without any arguments.",
					usage: "set [<var> <value>]",
					fn:    (*Host).cmdSet,
				},
				{
					name:  "step",
					brief: "Step the CPU",
					description: "Step the CPU by a single instruction. The number of" +
						" steps may be specified as an option.",
					usage: "step [<count>]",
					fn:    (*Host).cmdStep,
				},
			},
		},
		{
			name:  "breakpoint",
			brief: "Breakpoint commands",
			commands: []*command{
				{
					name:        "list",
					brief:       "List breakpoints",
					description: "List all current breakpoints.",
					usage:       "breakpoint list",
					fn:          (*Host).cmdBreakpointList,
				},
				{
					name:  "add",
					brief: "Add a breakpoint",
					description: "Add a breakpoint at the specified address." +
						" The breakpoint starts enabled.",
					usage: "breakpoint add <address>",
					fn:    (*Host).cmdBreakpointAdd,
				},
				{
					name:        "remove",
					brief:       "Remove a breakpoint",
					description: "Remove a breakpoint at the specified address.",
					usage:       "breakpoint remove <address>",
					fn:          (*Host).cmdBreakpointRemove,
				},
				{
					name:        "enable",
					brief:       "Enable a breakpoint",
					description: "Enable a previously added breakpoint.",
					usage:       "breakpoint enable <address>",
					fn:          (*Host).cmdBreakpointEnable,
				},
				{
					name:  "disable",
					brief: "Disable a breakpoint",
					description: "Disable a previously added breakpoint. This" +
						" prevents the breakpoint from being hit when running the" +
						" CPU.",
					usage: "breakpoint disable <address>",
					fn:    (*Host).cmdBreakpointDisable,
				},
			},
		},
		{
			name:  "databreakpoint",
			brief: "Data breakpoint commands",
			commands: []*command{
				{
					name:        "list",
					brief:       "List data breakpoints",
					description: "List all current data breakpoints.",
					usage:       "databreakpoint list",
					fn:          (*Host).cmdDataBreakpointList,
				},
				{
					name:  "add",
					brief: "Add a data breakpoint",
					description: "Add a new data breakpoint at the specified" +
						" memory address. When the CPU stores data at this address," +
						" the breakpoint will stop the CPU. Optionally, a byte value" +
						" may be specified, and the CPU will stop only when this" +
						" value is stored.",
					usage: "databreakpoint add <address> [<value>]",
					fn:    (*Host).cmdDataBreakpointAdd,
				},
				{
					name:  "remove",
					brief: "Remove a data breakpoint",
					description: "Remove a previously added data breakpoint at" +
						" the specified memory address.",
					usage: "databreakpoint remove <address>",
					fn:    (*Host).cmdDataBreakpointRemove,
				},
				{
					name:        "enable",
					brief:       "Enable a data breakpoint",
					description: "Enable a previously added data breakpoint.",
					usage:       "databreakpoint enable <address>",
					fn:          (*Host).cmdDataBreakpointEnable,
				},
				{
					name:        "disable",
					brief:       "Disable a data breakpoint",
					description: "Disable a previously added data breakpoint.",
					usage:       "databreakpoint disable <address>",
					fn:          (*Host).cmdDataBreakpointDisable,
				},
			},
		},
		{
			name:  "memory",
			brief: "Memory commands",
			commands: []*command{
				{
					name:  "dump",
					brief: "Dump memory at address",
					description: "Dump the contents of memory starting from the" +
						" specified address. The number of bytes to dump may be" +
						" specified as an option. If no address is specified, the" +
						" memory dump continues from where the last dump left off.",
					usage: "memory dump [<address>] [<bytes>]",
					fn:    (*Host).cmdMemoryDump,
				},
				{
					name:  "set",
					brief: "Set memory at address",
					description: "Set the contents of memory starting from the" +
						" specified address. The values to assign should be a series" +
						" of space-separated byte values.",
					usage: "memory set <address> <byte> [<byte> ...]",
					fn:    (*Host).cmdMemorySet,
				},
			},
		},
	}
}

var cmds *cmd.Tree

func init() {
	commandGroups = buildCommandGroups()
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "cycle6502"})
	for _, g := range commandGroups {
		t := root
		if g.name != "" {
			t = root.AddSubtree(cmd.TreeDescriptor{Name: g.name, Brief: g.brief})
		}
		for _, c := range g.commands {
			t.AddCommand(cmd.CommandDescriptor{
				Name:        c.name,
				Brief:       c.brief,
				Description: c.description,
				Usage:       c.usage,
				Data:        c,
			})
		}
	}

	// Add command shortcuts.
	root.AddShortcut("a", "assemble")
	root.AddShortcut("ba", "breakpoint add")
	root.AddShortcut("br", "breakpoint remove")
	root.AddShortcut("bl", "breakpoint list")
	root.AddShortcut("be", "breakpoint enable")
	root.AddShortcut("bd", "breakpoint disable")
	root.AddShortcut("dbl", "databreakpoint list")
	root.AddShortcut("dba", "databreakpoint add")
	root.AddShortcut("dbr", "databreakpoint remove")
	root.AddShortcut("dbe", "databreakpoint enable")
	root.AddShortcut("dbd", "databreakpoint disable")
	root.AddShortcut("x", "execute")
	root.AddShortcut("m", "memory dump")
	root.AddShortcut("ms", "memory set")
	root.AddShortcut("r", "register")
	root.AddShortcut("s", "step")
	root.AddShortcut("?", "help")
	root.AddShortcut(".", "register")

	cmds = root
}
