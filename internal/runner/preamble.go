package runner

// reportSettings tunes SQL*Plus for human-readable reports: headings on,
// wide lines, no feedback or echo.
const reportSettings = `btitle                         off
repfooter                      off
repheader                      off
ttitle                         off
set appinfo                    off
set arraysize                  500
set autocommit                 off
set autoprint                  off
set autorecovery               off
set autotrace                  off
set blockterminator            "."
set cmdsep                     off
set colsep                     " "
set concat                     "."
set copycommit                 0
set copytypecheck              on
set define                     "&"
set describe                   depth 1 linenum off indent on
set document                   off
set echo                       off
set embedded                   off
set escape                     off
set escchar                    off
set feedback                   off
set flush                      on
set heading                    on
set headsep                    "|"
set linesize                   32767
set loboffset                  1
set logsource                  ""
set long                       10000000
set longchunksize              10000000
set markup                     html                 off
set newpage                    1
set null                       ""
set numformat                  ""
set numwidth                   15
set pagesize                   50
set pause                      off
set pno                        0
set recsep                     wrap
set recsepchar                 " "
set serveroutput               on size unlimited
set shiftinout                 invisible
set showmode                   off
set space                      1
set sqlblanklines              off
set sqlcase                    mixed
set sqlcontinue                "> "
set sqlnumber                  on
set sqlprefix                  "#"
set sqlterminator              ";"
set suffix                     sql
set tab                        off
set termout                    on
set time                       off
set timing                     off
set trimout                    on
set trimspool                  on
set underline                  "-"
set verify                     off
set wrap                       on

`

// columnFormats widens the dictionary columns reports usually select.
const columnFormats = `column BLOCKS                  format 999,999,999,999
column BYTES                   format 999,999,999,999
column BYTES_CACHED            format 999,999,999,999
column BYTES_COALESCED         format 999,999,999,999
column BYTES_FREE              format 999,999,999,999
column BYTES_USED              format 999,999,999,999
column CLU_COLUMN_NAME         format a40
column CLUSTER_NAME            format a30
column CLUSTER_TYPE            format a10
column COLUMN_NAME             format a40
column COMPATIBILITY           format a15
column CONSTRAINT_NAME         format a30
column DATABASE_COMPATIBILITY  format a15
column DB_LINK                 format a20
column DBNAME                  format a10
column DIRECTORY_NAME          format a30
column DIRECTORY_PATH          format a100
column EXTENTS                 format 999,999
column FILE_NAME               format a50
column FUNCTION_NAME           format a30
column GBYTES                  format 999,999,999
column GRANTEE                 format a15
column GRANTEE_NAME            format a15
column HOST                    format a30
column HOST_NAME               format a30
column INDEX_NAME              format a30
column INDEX_OWNER             format a15
column INDEX_TYPE              format a10
column INSTANCE_NAME           format a10
column IOT_NAME                format a30
column IOT_TYPE                format a15
column JOB_MODE                format a10
column KSPPINM                 format a20
column KSPPSTVL                format a20
column MASTER_OWNER            format a15
column MBYTES                  format 999,999,999
column MEMBER                  format a60
column MESSAGE                 format a50
column MVIEW_NAME              format a30
column MVIEW_TABLE_OWNER       format a15
column NAME                    format a50
column NUM_ROWS                format 999,999,999
column OBJECT_NAME             format a30
column OBJECT_OWNER            format a15
column OBJECT_TYPE             format a13
column OPERATION               format a10
column OPNAME                  format a40
column OWNER                   format a15
column OWNER_NAME              format a15
column PARTITION_NAME          format a30
column PARTNAME                format a30
column PARTTYPE                format a10
column PATH                    format a40
column R_CONSTRAINT_NAME       format a30
column R_OWNER                 format a15
column SEGMENT_NAME            format a30
column SEGMENT_TYPE            format a10
column SEQUENCE_NAME           format a30
column SEQUENCE_OWNER          format a15
column SNAPNAME                format a30
column SNAPSHOT                format a30
column STATE                   format a10
column STATISTIC               format a50
column SYNONYM_NAME            format a30
column TABLE_NAME              format a30
column TABLE_OWNER             format a15
column TABLE_SCHEMA            format a15
column TABLESPACE_NAME         format a30
column TARGET_DESC             format a35
column TRIGGER_NAME            format a30
column TRIGGER_OWNER           format a15
column TYPE_NAME               format a30
column TYPE_OWNER              format a15
column USED_BLOCKS             format 999,999,999,999
column USERNAME                format a20
column VALUE                   format a30
column VIEW_NAME               format a30
column VIEW_TYPE               format a10
`

// querySettings tunes SQL*Plus for machine-readable output: no headings
// and no pagination, so every output line is one row.
const querySettings = `btitle                         off
repfooter                      off
repheader                      off
ttitle                         off
set appinfo                    off
set arraysize                  500
set autocommit                 off
set autoprint                  off
set autorecovery               off
set autotrace                  off
set blockterminator            "."
set cmdsep                     off
set colsep                     " "
set concat                     "."
set copycommit                 0
set copytypecheck              on
set define                     "&"
set describe                   depth 1 linenum off indent on
set document                   off
set echo                       off
set embedded                   off
set escape                     off
set escchar                    off
set feedback                   off
set flush                      on
set heading                    off
set headsep                    "|"
set linesize                   32767
set loboffset                  1
set logsource                  ""
set long                       10000000
set longchunksize              10000000
set markup                     html     off
set newpage                    1
set null                       ""
set numformat                  ""
set numwidth                   15
set pagesize                   0
set pause                      off
set pno                        0
set recsep                     wrap
set recsepchar                 " "
set serveroutput               on size unlimited
set shiftinout                 invisible
set showmode                   off
set space                      1
set sqlblanklines              off
set sqlcase                    mixed
set sqlcontinue                "> "
set sqlnumber                  on
set sqlprefix                  "#"
set sqlterminator              ";"
set suffix                     sql
set tab                        off
set termout                    on
set time                       off
set timing                     off
set trimout                    on
set trimspool                  on
set underline                  "-"
set verify                     off
set wrap                       on

`

// sqlplusReportPreamble precedes report scripts.
const sqlplusReportPreamble = reportSettings + columnFormats

// sqlplusQueryPreamble precedes single queries.
const sqlplusQueryPreamble = querySettings
