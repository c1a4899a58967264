package design

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/hdllint/internal/hdlast"
	"github.com/robert-at-pretension-io/hdllint/internal/procedure"
)

// Load parses src (the contents of one .hdldesign file) and elaborates
// it into a Design. The format is a small, line-oriented text grammar:
//
//	module NAME ... endmodule
//	interface NAME ... endinterface
//	instance LABEL TEMPLATE[(PORT=>EXPR, ...)]   (top level only)
//
// inside a module body:
//
//	port in|out|inout NAME          (optionally "port in [7:0] NAME")
//	net wire|uwire|udnt NAME [= x]
//	var [static] NAME [= x]
//	ifaceport IFACE NAME
//	always_comb|always_ff|always_latch|always|initial|final
//	  assign TARGET = SOURCE
//	end
//
// inside an interface body: the same net/var declarations, plus
//
//	modport NAME
//	  port in|out MEMBER
//	endmodport
//
// Two module/interface instances of the same template name share one
// elaborated InstanceBodySymbol (the template itself is canonical),
// matching the canonical-instance dedup the side-effect graph is built
// around; only interface-port connections are tracked per instance
// (see hdlast.InstanceSymbol.IfacePortConnections).
func Load(src, filename string) (*Design, error) {
	lines := strings.Split(src, "\n")

	p := &parser{lines: lines, filename: filename}
	blocks, topLines, err := p.scanBlocks()
	if err != nil {
		return nil, err
	}

	d := &Design{
		Modules:    make(map[string]*hdlast.InstanceBodySymbol),
		Interfaces: make(map[string]*hdlast.InstanceBodySymbol),
	}
	ifacePorts := make(map[string]map[string]*hdlast.InterfacePortSymbol)
	rawProcs := make(map[string][]rawProcBlock)

	// Phase 2: create stub bodies so forward references resolve.
	for _, b := range blocks {
		body := hdlast.NewInstanceBody(b.name, p.loc(b.headerLine), nil)
		body.IsModuleKind = !b.isInterface
		if b.isInterface {
			d.Interfaces[b.name] = body
		} else {
			d.Modules[b.name] = body
		}
	}

	// Phase 3: parse interface bodies first (modules' ifaceport lines
	// only need the name to exist, not its members).
	for _, b := range blocks {
		if !b.isInterface {
			continue
		}
		body := d.Interfaces[b.name]
		if err := p.parseInterfaceBody(body, b.lines); err != nil {
			return nil, err
		}
	}
	for _, b := range blocks {
		if b.isInterface {
			continue
		}
		body := d.Modules[b.name]
		ports := make(map[string]*hdlast.InterfacePortSymbol)
		ifacePorts[b.name] = ports
		procs, err := p.parseModuleBody(body, b.lines, d, ports)
		if err != nil {
			return nil, err
		}
		rawProcs[b.name] = procs
	}

	// Phase 4: elaborate top-level instances, now that every template
	// and its declarations exist.
	labelToInstance := make(map[string]*hdlast.InstanceSymbol)
	for _, line := range topLines {
		if err := p.parseTopInstance(line.text, line.num, d, ifacePorts, labelToInstance); err != nil {
			return nil, err
		}
	}

	// Phase 5: now that every module's representative instance (and
	// therefore its interface-port connections) is known, resolve
	// procedural statement expressions and attach them to the design.
	for modName, procs := range rawProcs {
		body := d.Modules[modName]
		rep := representativeInstance(d.TopInstances, body)
		for _, rp := range procs {
			blk := ProcedureBlock{Kind: rp.kind, ContainingSymbol: body}
			for _, stmt := range rp.stmts {
				expr, err := p.resolveAssignment(stmt, body, rep, ifacePorts[modName])
				if err != nil {
					return nil, err
				}
				if expr != nil {
					blk.Statements = append(blk.Statements, expr)
				}
			}
			d.Procedures = append(d.Procedures, blk)
		}
	}

	return d, nil
}

func representativeInstance(instances []*hdlast.InstanceSymbol, body *hdlast.InstanceBodySymbol) *hdlast.InstanceSymbol {
	for _, inst := range instances {
		if inst.Body == body {
			return inst
		}
	}
	return nil
}

// ToProcedureBlock converts a design-loader procedure block into the
// shape internal/procedure.Analyze expects. This format carries no
// per-statement call-range text, so CallRange is left nil for every
// statement (it only feeds the MultipleAlwaysAssigns "original
// assignment" note, which still works correctly without it — the note
// is simply omitted).
func (b ProcedureBlock) ToProcedureBlock() procedure.Block {
	stmts := make([]procedure.Statement, len(b.Statements))
	for i, s := range b.Statements {
		stmts[i] = procedure.Statement{Expr: s}
	}
	return procedure.Block{
		BlockKind:        b.Kind,
		ContainingSymbol: b.ContainingSymbol,
		Statements:       stmts,
	}
}

// --- scanning ---------------------------------------------------------

type block struct {
	name        string
	isInterface bool
	headerLine  int
	lines       []numberedLine
}

type numberedLine struct {
	text string
	num  int
}

type rawProcBlock struct {
	kind  hdlast.ProceduralBlockKind
	stmts []rawAssign
}

type rawAssign struct {
	target, source string
	num            int
}

type parser struct {
	lines    []string
	filename string
}

func (p *parser) loc(line int) hdlast.SourceLocation {
	return hdlast.SourceLocation{File: p.filename, Line: line}
}

func (p *parser) rangeAt(line int) hdlast.SourceRange {
	l := p.loc(line)
	return hdlast.SourceRange{Start: l, End: l}
}

// scanBlocks splits the source into module/interface blocks and
// top-level instance lines, in file order.
func (p *parser) scanBlocks() ([]block, []numberedLine, error) {
	var blocks []block
	var topLines []numberedLine

	for i := 0; i < len(p.lines); i++ {
		num := i + 1
		fields := fieldsOf(p.lines[i])
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "module", "interface":
			if len(fields) < 2 {
				return nil, nil, p.errf(num, "%s: missing name", fields[0])
			}
			isInterface := fields[0] == "interface"
			endKeyword := "endmodule"
			if isInterface {
				endKeyword = "endinterface"
			}
			var body []numberedLine
			j := i + 1
			for ; j < len(p.lines); j++ {
				if strings.TrimSpace(p.lines[j]) == endKeyword {
					break
				}
				if fs := fieldsOf(p.lines[j]); len(fs) > 0 {
					body = append(body, numberedLine{text: p.lines[j], num: j + 1})
				}
			}
			if j == len(p.lines) {
				return nil, nil, p.errf(num, "%s %s: missing %s", fields[0], fields[1], endKeyword)
			}
			blocks = append(blocks, block{name: fields[1], isInterface: isInterface, headerLine: num, lines: body})
			i = j
		case "instance":
			topLines = append(topLines, numberedLine{text: p.lines[i], num: num})
		default:
			return nil, nil, p.errf(num, "unexpected top-level directive %q", fields[0])
		}
	}
	return blocks, topLines, nil
}

func (p *parser) errf(line int, format string, args ...any) error {
	return fmt.Errorf("%s:%d: %s", p.filename, line, fmt.Sprintf(format, args...))
}

func fieldsOf(line string) []string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}
	return strings.Fields(line)
}

// --- declarations -------------------------------------------------------

// initializerPlaceholder stands in for any declared initializer: the
// driver tracker's first-driver-synthesis step (§4.2 step 4) only
// checks Initializer() != nil, never evaluates it, so this format
// never needs to represent the initializer's actual value.
var initializerPlaceholder hdlast.Expression = &hdlast.ConcatExpression{}

func (p *parser) parseInterfaceBody(body *hdlast.InstanceBodySymbol, lines []numberedLine) error {
	for i := 0; i < len(lines); i++ {
		fields := fieldsOf(lines[i].text)
		num := lines[i].num
		switch fields[0] {
		case "net", "var":
			sym, err := p.parseValueDecl(fields, num, body)
			if err != nil {
				return err
			}
			body.Declare(sym)
		case "modport":
			if len(fields) < 2 {
				return p.errf(num, "modport: missing name")
			}
			mp := hdlast.NewModport(fields[1], p.loc(num), body)
			j := i + 1
			for ; j < len(lines); j++ {
				fs := fieldsOf(lines[j].text)
				if fs[0] == "endmodport" {
					break
				}
				if fs[0] != "port" || len(fs) < 3 {
					return p.errf(lines[j].num, "modport: expected \"port in|out MEMBER\"")
				}
				member := fs[2]
				memberSym := body.Find(member)
				if memberSym == nil {
					return p.errf(lines[j].num, "modport %s: undeclared member %q", mp.Name(), member)
				}
				vs, ok := memberSym.(hdlast.ValueSymbol)
				if !ok {
					return p.errf(lines[j].num, "modport %s: member %q is not a value", mp.Name(), member)
				}
				mp.Declare(&hdlast.ModportPortSymbol{
					Base:     hdlast.Base{SymName: member, Loc: p.loc(lines[j].num), Parent: mp},
					DeclType: vs.DeclaredType(),
					ConnExpr: &hdlast.NamedValueExpression{Sym: vs, Range: p.rangeAt(lines[j].num)},
				})
			}
			if j == len(lines) {
				return p.errf(num, "modport %s: missing endmodport", mp.Name())
			}
			body.Declare(mp)
			i = j
		default:
			return p.errf(num, "interface body: unexpected directive %q", fields[0])
		}
	}
	return nil
}

func (p *parser) parseModuleBody(body *hdlast.InstanceBodySymbol, lines []numberedLine, d *Design, ifacePorts map[string]*hdlast.InterfacePortSymbol) ([]rawProcBlock, error) {
	var procs []rawProcBlock
	for i := 0; i < len(lines); i++ {
		fields := fieldsOf(lines[i].text)
		num := lines[i].num
		switch fields[0] {
		case "port":
			sym, err := p.parsePortDecl(fields, num, body)
			if err != nil {
				return nil, err
			}
			body.DeclarePort(sym)
		case "net", "var":
			sym, err := p.parseValueDecl(fields, num, body)
			if err != nil {
				return nil, err
			}
			body.Declare(sym)
		case "ifaceport":
			if len(fields) < 3 {
				return nil, p.errf(num, "ifaceport: expected \"ifaceport IFACE NAME\"")
			}
			ifaceName, portName := fields[1], fields[2]
			if _, ok := d.Interfaces[ifaceName]; !ok {
				return nil, p.errf(num, "ifaceport: unknown interface %q", ifaceName)
			}
			ifp := &hdlast.InterfacePortSymbol{Base: hdlast.Base{SymName: portName, Loc: p.loc(num), Parent: body}}
			body.DeclarePort(ifp)
			ifacePorts[portName] = ifp
		case "always_comb", "always_ff", "always_latch", "always", "initial", "final":
			kind, err := procKindOf(fields[0])
			if err != nil {
				return nil, err
			}
			var stmts []rawAssign
			j := i + 1
			for ; j < len(lines); j++ {
				fs := fieldsOf(lines[j].text)
				if fs[0] == "end" {
					break
				}
				if fs[0] != "assign" {
					return nil, p.errf(lines[j].num, "procedural block: expected \"assign TARGET = SOURCE\"")
				}
				rest := strings.Join(fs[1:], " ")
				eq := strings.Index(rest, "=")
				if eq < 0 {
					return nil, p.errf(lines[j].num, "assign: missing '='")
				}
				stmts = append(stmts, rawAssign{
					target: strings.TrimSpace(rest[:eq]),
					source: strings.TrimSpace(rest[eq+1:]),
					num:    lines[j].num,
				})
			}
			if j == len(lines) {
				return nil, p.errf(num, "%s: missing end", fields[0])
			}
			procs = append(procs, rawProcBlock{kind: kind, stmts: stmts})
			i = j
		default:
			return nil, p.errf(num, "module body: unexpected directive %q", fields[0])
		}
	}
	return procs, nil
}

func procKindOf(kw string) (hdlast.ProceduralBlockKind, error) {
	switch kw {
	case "always_comb":
		return hdlast.ProcAlwaysComb, nil
	case "always_ff":
		return hdlast.ProcAlwaysFF, nil
	case "always_latch":
		return hdlast.ProcAlwaysLatch, nil
	case "always":
		return hdlast.ProcAlways, nil
	case "initial":
		return hdlast.ProcInitial, nil
	case "final":
		return hdlast.ProcFinal, nil
	default:
		return 0, fmt.Errorf("design: unknown procedural block kind %q", kw)
	}
}

// parsePortDecl parses "port <in|out|inout> [WIDTH] NAME".
func (p *parser) parsePortDecl(fields []string, num int, parent hdlast.Scope) (*hdlast.PortSymbol, error) {
	if len(fields) < 3 {
		return nil, p.errf(num, "port: expected \"port in|out|inout NAME\"")
	}
	dir, err := directionOf(fields[1])
	if err != nil {
		return nil, p.errf(num, "%v", err)
	}
	rest := fields[2:]
	width, rest, err := takeWidth(rest)
	if err != nil {
		return nil, p.errf(num, "%v", err)
	}
	if len(rest) != 1 {
		return nil, p.errf(num, "port: expected a single name")
	}
	return &hdlast.PortSymbol{
		Base:      hdlast.Base{SymName: rest[0], Loc: p.loc(num), Parent: parent},
		Direction: dir,
		DeclType:  width,
	}, nil
}

// parseValueDecl parses a "net KIND [WIDTH] NAME [= x]" or
// "var [static] [WIDTH] NAME [= x]" declaration.
func (p *parser) parseValueDecl(fields []string, num int, parent hdlast.Scope) (hdlast.Symbol, error) {
	kw := fields[0]
	rest := fields[1:]

	if kw == "net" {
		if len(rest) < 1 {
			return nil, p.errf(num, "net: missing kind")
		}
		netKindStr := rest[0]
		netKind, err := netKindOf(netKindStr)
		if err != nil {
			return nil, p.errf(num, "%v", err)
		}
		rest = rest[1:]
		width, rest, err := takeWidth(rest)
		if err != nil {
			return nil, p.errf(num, "%v", err)
		}
		name, init, err := takeNameAndInit(rest)
		if err != nil {
			return nil, p.errf(num, "%v", err)
		}
		return &hdlast.NetSymbol{
			Base:     hdlast.Base{SymName: name, Loc: p.loc(num), Parent: parent},
			DeclType: width,
			Init:     init,
			NetInfo:  &hdlast.NetType{Name: netKindStr, NetKind: netKind, HasResolutionFunction: netKind == hdlast.NetWire},
		}, nil
	}

	lifetime := hdlast.LifetimeAutomatic
	if len(rest) > 0 && rest[0] == "static" {
		lifetime = hdlast.LifetimeStatic
		rest = rest[1:]
	}
	width, rest, err := takeWidth(rest)
	if err != nil {
		return nil, p.errf(num, "%v", err)
	}
	name, init, err := takeNameAndInit(rest)
	if err != nil {
		return nil, p.errf(num, "%v", err)
	}
	return &hdlast.VariableSymbol{
		Base:     hdlast.Base{SymName: name, Loc: p.loc(num), Parent: parent},
		DeclType: width,
		Init:     init,
		Lifetime: lifetime,
	}, nil
}

func takeNameAndInit(rest []string) (name string, init hdlast.Expression, err error) {
	if len(rest) == 0 {
		return "", nil, fmt.Errorf("declaration: missing name")
	}
	if len(rest) == 1 {
		return rest[0], nil, nil
	}
	if len(rest) >= 2 && rest[1] == "=" {
		return rest[0], initializerPlaceholder, nil
	}
	return "", nil, fmt.Errorf("declaration: unexpected trailing tokens after %q", rest[0])
}

func directionOf(s string) (hdlast.Direction, error) {
	switch s {
	case "in":
		return hdlast.DirIn, nil
	case "out":
		return hdlast.DirOut, nil
	case "inout":
		return hdlast.DirInOut, nil
	case "ref":
		return hdlast.DirRef, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

func netKindOf(s string) (hdlast.NetKind, error) {
	switch s {
	case "wire":
		return hdlast.NetWire, nil
	case "uwire":
		return hdlast.NetUWire, nil
	case "udnt":
		return hdlast.NetUserDefined, nil
	case "tri":
		return hdlast.NetTri, nil
	default:
		return 0, fmt.Errorf("unknown net kind %q", s)
	}
}

// takeWidth consumes a leading "[hi:lo]" token, if present, and returns
// the resulting DeclaredType alongside the unconsumed fields.
func takeWidth(fields []string) (*hdlast.DeclaredType, []string, error) {
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "[") {
		return &hdlast.DeclaredType{SelectableWidth: 1}, fields, nil
	}
	tok := strings.Trim(fields[0], "[]")
	parts := strings.SplitN(tok, ":", 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("malformed width %q", fields[0])
	}
	hi, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	lo, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return nil, nil, fmt.Errorf("malformed width %q", fields[0])
	}
	if hi < lo {
		hi, lo = lo, hi
	}
	return &hdlast.DeclaredType{SelectableWidth: hi - lo + 1}, fields[1:], nil
}

// --- top-level instances -------------------------------------------------

func (p *parser) parseTopInstance(line string, num int, d *Design, ifacePorts map[string]map[string]*hdlast.InterfacePortSymbol, labelToInstance map[string]*hdlast.InstanceSymbol) error {
	conns := ""
	if idx := strings.Index(line, "("); idx >= 0 {
		end := strings.LastIndex(line, ")")
		if end < idx {
			return p.errf(num, "instance: unbalanced parentheses")
		}
		conns = line[idx+1 : end]
		line = line[:idx]
	}
	fields := fieldsOf(line)
	if len(fields) != 3 {
		return p.errf(num, "instance: expected \"instance LABEL TEMPLATE\"")
	}
	label, tmplName := fields[1], fields[2]

	isInterface := false
	body, ok := d.Modules[tmplName]
	if !ok {
		body, ok = d.Interfaces[tmplName]
		isInterface = ok
		if !ok {
			return p.errf(num, "instance: unknown definition %q", tmplName)
		}
	}

	inst := &hdlast.InstanceSymbol{
		Base:                 hdlast.Base{SymName: label, Loc: p.loc(num), Parent: nil},
		Body:                 body,
		IfacePortConnections: make(map[string]*hdlast.InterfacePortSymbol),
	}
	labelToInstance[label] = inst

	if !isInterface {
		for _, raw := range splitConns(conns) {
			name, exprText, err := splitConn(raw)
			if err != nil {
				return p.errf(num, "%v", err)
			}
			if ifp, isIfacePort := ifacePorts[tmplName][name]; isIfacePort {
				connInst, modport, err := p.resolveIfaceConnTarget(exprText, labelToInstance, num)
				if err != nil {
					return err
				}
				var connSym hdlast.Symbol = connInst.Body
				inst.IfacePortConnections[ifp.Name()] = &hdlast.InterfacePortSymbol{
					Base:        hdlast.Base{SymName: name, Loc: p.loc(num), Parent: inst.Body},
					ConnSymbol:  connSym,
					ConnModport: modport,
					ConnExpr: &hdlast.ArbitrarySymbolExpression{
						HierRef: &hdlast.HierarchicalReference{
							Path:   []hdlast.PathStep{{Sym: connInst}},
							Target: connSym,
						},
						Range: p.rangeAt(num),
					},
				}
				continue
			}
			portSym, ok := body.FindPort(name).(*hdlast.PortSymbol)
			if !ok {
				return p.errf(num, "instance %s: unknown port %q", label, name)
			}
			expr := p.resolveTopLevelExpr(exprText, labelToInstance, num)
			d.PortConnections = append(d.PortConnections, PortConnection{
				Port:             portSym,
				Expr:             expr,
				ContainingSymbol: inst,
			})
		}
	}

	d.TopInstances = append(d.TopInstances, inst)
	return nil
}

func splitConns(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func splitConn(raw string) (name, expr string, err error) {
	idx := strings.Index(raw, "=>")
	if idx < 0 {
		return "", "", fmt.Errorf("connection %q: expected NAME=>EXPR", raw)
	}
	return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+2:]), nil
}

// resolveIfaceConnTarget resolves "LABEL" or "LABEL.MODPORT" against
// already-elaborated top-level instances (forward references are
// rejected: instances must be declared before they're connected to).
func (p *parser) resolveIfaceConnTarget(expr string, labelToInstance map[string]*hdlast.InstanceSymbol, num int) (*hdlast.InstanceSymbol, *hdlast.ModportSymbol, error) {
	parts := strings.SplitN(expr, ".", 2)
	inst, ok := labelToInstance[parts[0]]
	if !ok {
		return nil, nil, p.errf(num, "interface-port connection: unknown instance %q", parts[0])
	}
	if len(parts) == 1 {
		return inst, nil, nil
	}
	mp, ok := inst.Body.Find(parts[1]).(*hdlast.ModportSymbol)
	if !ok {
		return nil, nil, p.errf(num, "interface-port connection: %q has no modport %q", parts[0], parts[1])
	}
	return inst, mp, nil
}

// resolveTopLevelExpr resolves a regular port's connection expression
// ("LABEL.MEMBER"), returning nil if it doesn't reference a known
// instance member — matching the existing "elaboration failed, no
// driver" contract AddPortConnection already implements for a nil
// connExpr.
func (p *parser) resolveTopLevelExpr(expr string, labelToInstance map[string]*hdlast.InstanceSymbol, num int) hdlast.Expression {
	parts := strings.SplitN(expr, ".", 2)
	inst, ok := labelToInstance[parts[0]]
	if !ok || len(parts) != 2 {
		return nil
	}
	member := inst.Body.Find(parts[1])
	vs, ok := member.(hdlast.ValueSymbol)
	if !ok {
		return nil
	}
	return &hdlast.HierarchicalValueExpression{
		Ref: &hdlast.HierarchicalReference{
			Path:   []hdlast.PathStep{{Sym: inst}, {Sel: hdlast.Selector{SelKind: hdlast.SelectorName, Name: parts[1]}}},
			Target: vs,
		},
		Range: p.rangeAt(num),
	}
}

// --- procedure statement expressions -------------------------------------

// resolveAssignment parses one "TARGET = SOURCE" pair into an
// AssignmentExpression. Only the target matters to the driver tracker
// (internal/lsp's AssignmentExpression visitor never descends into
// RHS), so the source is resolved best-effort and simply omitted if it
// doesn't name a known symbol.
func (p *parser) resolveAssignment(stmt rawAssign, body *hdlast.InstanceBodySymbol, rep *hdlast.InstanceSymbol, ifacePorts map[string]*hdlast.InterfacePortSymbol) (hdlast.Expression, error) {
	target, err := p.resolveChain(stmt.target, stmt.num, body, rep, ifacePorts)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, nil
	}
	source, _ := p.resolveChain(stmt.source, stmt.num, body, rep, ifacePorts)
	return &hdlast.AssignmentExpression{LHS: target, RHS: source, Range: p.rangeAt(stmt.num)}, nil
}

// resolveChain parses a "base(.member|[sel])*" expression within a
// module body: base resolves against the body's own declarations
// (ports/nets/vars), or — if it names an interface port — against that
// port's connection on the representative instance (the first
// top-level instance using this template; see DESIGN.md's canonical-
// instance note), joining the remaining chain onto the connected
// symbol's own members.
func (p *parser) resolveChain(text string, num int, body *hdlast.InstanceBodySymbol, rep *hdlast.InstanceSymbol, ifacePorts map[string]*hdlast.InterfacePortSymbol) (hdlast.Expression, error) {
	if text == "" {
		return nil, nil
	}
	base, segs, err := tokenizeChain(text)
	if err != nil {
		return nil, p.errf(num, "%v", err)
	}

	if ifp, ok := ifacePorts[base]; ok {
		return p.resolveIfacePortChain(ifp, segs, num, rep)
	}

	sym := body.Find(base)
	if sym == nil {
		return nil, nil
	}
	vs, ok := sym.(hdlast.ValueSymbol)
	if !ok {
		return nil, nil
	}
	expr := hdlast.Expression(&hdlast.NamedValueExpression{Sym: vs, Range: p.rangeAt(num)})
	return applySegments(expr, segs, vs.DeclaredType(), p.rangeAt(num)), nil
}

// resolveIfacePortChain builds the HierarchicalValueExpression for a
// reference reached through this module's own interface port (§4.3):
// Path[0] is the port itself (IsViaIfacePort=true), and Target is
// resolved through the representative instance's concrete connection
// so the driver is usable before any side-effect replay runs.
func (p *parser) resolveIfacePortChain(ifp *hdlast.InterfacePortSymbol, segs []string, num int, rep *hdlast.InstanceSymbol) (hdlast.Expression, error) {
	path := []hdlast.PathStep{{Sym: ifp}}
	var target hdlast.Symbol
	if rep != nil {
		if conn, ok := rep.IfacePortConnections[ifp.Name()]; ok {
			cur, modport := conn.ConnSymbol, conn.ConnModport
			for _, seg := range segs {
				path = append(path, hdlast.PathStep{Sel: hdlast.Selector{SelKind: hdlast.SelectorName, Name: seg}})
				scope, ok := cur.(hdlast.Scope)
				if !ok {
					cur = nil
					break
				}
				var found hdlast.Symbol
				if modport != nil {
					found = modport.Find(seg)
				}
				if found == nil {
					found = scope.Find(seg)
				}
				cur = found
				if cur == nil {
					break
				}
			}
			target = cur
		}
	}
	if target == nil {
		// No representative yet, or the chain didn't resolve: the
		// reference is still recorded (so side-effect replay onto any
		// later-declared instance still works), just without bounds
		// until GetBounds's type lookup has something to go on.
		return &hdlast.HierarchicalValueExpression{Ref: &hdlast.HierarchicalReference{Path: path, IsViaIfacePort: true}, Range: p.rangeAt(num)}, nil
	}
	return &hdlast.HierarchicalValueExpression{
		Ref:   &hdlast.HierarchicalReference{Path: path, IsViaIfacePort: true, Target: target},
		Range: p.rangeAt(num),
	}, nil
}

// applySegments wraps expr in MemberAccessExpression/ElementSelect/
// RangeSelect nodes for each chain segment, in order.
func applySegments(expr hdlast.Expression, segs []string, typ *hdlast.DeclaredType, rng hdlast.SourceRange) hdlast.Expression {
	for _, seg := range segs {
		if lo, hi, ok := parseIndexOrRange(seg); ok {
			if lo == hi {
				idx := lo
				expr = &hdlast.ElementSelectExpression{Val: expr, Index: &idx, Typ: &hdlast.DeclaredType{SelectableWidth: 1}, Range: rng}
			} else {
				l, h := lo, hi
				expr = &hdlast.RangeSelectExpression{Val: expr, Left: &l, Right: &h, Typ: &hdlast.DeclaredType{SelectableWidth: h - l + 1}, Range: rng}
			}
			continue
		}
		expr = &hdlast.MemberAccessExpression{Val: expr, Member: seg, Typ: typ, Range: rng}
	}
	return expr
}

func parseIndexOrRange(seg string) (lo, hi int, ok bool) {
	if !strings.HasPrefix(seg, "[") || !strings.HasSuffix(seg, "]") {
		return 0, 0, false
	}
	inner := strings.Trim(seg, "[]")
	if idx := strings.Index(inner, ":"); idx >= 0 {
		l, err1 := strconv.Atoi(strings.TrimSpace(inner[:idx]))
		h, err2 := strconv.Atoi(strings.TrimSpace(inner[idx+1:]))
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		if l > h {
			l, h = h, l
		}
		return l, h, true
	}
	v, err := strconv.Atoi(inner)
	if err != nil {
		return 0, 0, false
	}
	return v, v, true
}

// tokenizeChain splits "base.member1[3:0].member2" into its base
// identifier and an ordered list of ".member" / "[sel]" segments.
func tokenizeChain(text string) (base string, segs []string, err error) {
	i := 0
	for i < len(text) && text[i] != '.' && text[i] != '[' {
		i++
	}
	base = text[:i]
	if base == "" {
		return "", nil, fmt.Errorf("expression %q: missing base identifier", text)
	}
	for i < len(text) {
		switch text[i] {
		case '.':
			j := i + 1
			for j < len(text) && text[j] != '.' && text[j] != '[' {
				j++
			}
			if j == i+1 {
				return "", nil, fmt.Errorf("expression %q: empty member after '.'", text)
			}
			segs = append(segs, text[i+1:j])
			i = j
		case '[':
			j := strings.IndexByte(text[i:], ']')
			if j < 0 {
				return "", nil, fmt.Errorf("expression %q: unbalanced '['", text)
			}
			segs = append(segs, text[i:i+j+1])
			i += j + 1
		default:
			return "", nil, fmt.Errorf("expression %q: unexpected character %q", text, text[i])
		}
	}
	return base, segs, nil
}
