// Package domain turns raw Energex network pages into the records persisted
// by the ETL job.
//
// # Data Sources
//
// Network demand comes from a plaintext file published by Energex,
// https://www.energex.com.au/static/Energex/Network%20Demand/networkdemand.txt,
// holding a single megawatt figure, sometimes followed by a stray newline or
// other characters.
//
// Unplanned outages come from the "emergency outages" HTML page. The relevant
// region of that page looks like:
//
//	<div id="unplanned-outages-wrapper">
//	  <table id="unplanned-outages-table">
//	    <caption>Last updated: 1 March 2021 9:00am Total affected customers: 150</caption>
//	    <tbody>
//	      <tr title="Outage 123">
//	        <td class="region">Moreton Bay</td>
//	        <td class="suburb">Redcliffe</td>
//	        <td class="cust">42</td>
//	        <td class="cause">Storm damage</td>
//	        <td class="time" data-timestamp="2021-03-01T10:00:00+10:00">10:00am</td>
//	      </tr>
//	    </tbody>
//	  </table>
//	</div>
//
// When there is nothing to report the body holds a single row with one
// colspan cell ("There are currently no power outages reported for South East
// Queensland."). That row is a placeholder, not an outage.
//
// # Conventions
//
// Numbers use leading-integer-or-zero coercion: "3456\n" is 3456, "12abc" is
// 12, "abc" is 0. See [ParseLeadingInt].
//
// Times are Brisbane civil time, UTC+10:00 all year (Queensland has no
// daylight saving). The caption's "Last updated" text carries no offset, so
// " +1000" is appended before parsing. Row timestamps carry their own offset.
//
// Demand rating buckets the megawatt figure into 1..8 in 500 MW steps starting
// below 1500 MW. See [ClassifyDemand].
//
// Nothing in this package returns an error: an unexpected page layout yields
// empty or nil fields, because the site legitimately drops sections when there
// is nothing to report.
package domain
