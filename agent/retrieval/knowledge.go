package retrieval

// Doc is one reference snippet of the built-in knowledge base.
type Doc struct {
	ID    uint32
	Title string
	Text  string
}

// knowledgeBase is the embedded domain reference material served to question
// and analysis turns. Kept deliberately small; external corpora plug in
// through the FTS index instead.
var knowledgeBase = []Doc{
	{0, "pv curve",
		"A PV curve (power-voltage curve, also called a nose curve) plots bus voltage magnitude against total active load. The upper branch is the stable operating region; the tip of the nose is the point of voltage collapse."},
	{1, "nose point",
		"The nose point is the maximum loadability of the system. Past it no power-flow solution exists on the upper branch. The voltage at the nose is the critical voltage and the corresponding load is the maximum power transfer."},
	{2, "load margin",
		"Load margin is the distance in MW between the present operating point and the nose point. Operators keep a margin so that credible contingencies do not push the system over the tip of the curve."},
	{3, "power factor",
		"Power factor is the ratio of active to apparent power. A lower lagging power factor increases reactive demand, pulls the nose point to lower power, and reduces the load margin. Capacitive (leading) load support raises the curve."},
	{4, "step size",
		"Step size controls the load increment between consecutive power-flow solutions in the sweep. Smaller steps resolve the nose region more precisely at the cost of more solver iterations."},
	{5, "voltage limit",
		"The voltage limit is the per-unit floor below which the sweep stops even if the power flow still converges. It models the lowest voltage a utility would tolerate before shedding load."},
	{6, "continuation power flow",
		"Continuation methods trace the full PV curve through the nose onto the lower branch by parameterizing load. A plain Newton-Raphson sweep loses convergence at the nose and only captures the upper branch."},
	{7, "monitored bus",
		"The monitored bus is where voltage magnitude is sampled for the curve. Buses electrically farther from generation show a deeper voltage dip and reach the critical voltage earlier."},
	{8, "load type",
		"Inductive loads absorb reactive power and depress bus voltage; capacitive loads inject reactive power and support it. The reactive component is derived from the active load through the power factor angle."},
	{9, "voltage stability",
		"Voltage stability is the ability of a power system to maintain acceptable voltages at all buses after a disturbance. Voltage collapse typically follows a gradual load increase that exhausts reactive reserves."},
	{10, "test systems",
		"The IEEE 14, 24, 30, 39, 57, 118 and 300 bus cases are standard study networks. The 39-bus case models the New England system and is the default grid for these sweeps."},
	{11, "base power",
		"Base power is the MVA base of the per-unit system. It scales reported quantities but does not change the physics; impedances and loads are expressed relative to it."},
	{12, "max scale",
		"Max scale bounds the sweep: load grows from the base case by the step increment until the multiplier reaches max scale, voltage hits the limit, or the power flow diverges."},
	{13, "newton raphson",
		"Newton-Raphson power flow solves the nonlinear bus power balance by iterating linearized corrections. Near the nose the Jacobian becomes singular and the iteration diverges, which itself signals proximity to collapse."},
}
